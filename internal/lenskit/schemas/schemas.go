// Package schemas embeds the JSON Schema documents the pipeline
// validates its wire contracts against.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

//go:embed *.json
var fs embed.FS

var (
	mu       sync.Mutex
	resolved = map[string]*jsonschema.Resolved{}
)

// Resolve loads and compiles the named embedded schema document
// (without its .json suffix), caching the compiled result.
func Resolve(name string) (*jsonschema.Resolved, error) {
	mu.Lock()
	defer mu.Unlock()

	if r, ok := resolved[name]; ok {
		return r, nil
	}

	data, err := fs.ReadFile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema %s not embedded: %w", name, err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("schema %s is not valid JSON Schema: %w", name, err)
	}

	r, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	resolved[name] = r
	return r, nil
}

// Validate resolves the named schema and validates instance against it.
func Validate(name string, instance any) error {
	r, err := Resolve(name)
	if err != nil {
		return err
	}
	return r.Validate(instance)
}

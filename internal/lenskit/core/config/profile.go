// Package config provides the two cooperating configuration formats:
// a YAML profile config resolving per-mode output settings, and a TOML
// project config governing scan/chunk parameters.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ProfileSettings is the "lenskit:" section of a YAML profile config.
type ProfileSettings struct {
	OutputMode     string `yaml:"output_mode"`
	RedactSecrets  bool   `yaml:"redact_secrets"`
	SplitSizeBytes int    `yaml:"split_size_bytes"`
	MaxBytes       int64  `yaml:"max_bytes"`

	CodeOutputMode string `yaml:"code_output_mode"`
	DocsOutputMode string `yaml:"docs_output_mode"`
}

// ResolvedMode is the settings that apply to a single run mode.
type ResolvedMode struct {
	OutputMode     string
	RedactSecrets  bool
	SplitSizeBytes int
	MaxBytes       int64
}

type profileWrapper struct {
	Lenskit ProfileSettings `yaml:"lenskit"`
}

// LoadProfile reads the "lenskit:" section from a YAML file at path.
func LoadProfile(path string) (*ProfileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile config: %w", err)
	}

	var wrapper profileWrapper
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse profile config YAML: %w", err)
	}

	return &wrapper.Lenskit, nil
}

// ValidModes lists the recognized per-mode profile names.
func ValidModes() []string {
	return []string{"code", "docs"}
}

// IsValidMode reports whether mode is recognized; empty is valid and
// resolves to "code".
func IsValidMode(mode string) bool {
	if mode == "" {
		return true
	}
	for _, m := range ValidModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// Resolve returns the settings for a named mode, falling back to
// "code" for an empty or unknown mode.
func (s *ProfileSettings) Resolve(mode string) ResolvedMode {
	rm := ResolvedMode{
		RedactSecrets:  s.RedactSecrets,
		SplitSizeBytes: s.SplitSizeBytes,
		MaxBytes:       s.MaxBytes,
	}

	switch mode {
	case "docs":
		rm.OutputMode = firstNonEmpty(s.DocsOutputMode, s.OutputMode)
	case "code":
		fallthrough
	default:
		rm.OutputMode = firstNonEmpty(s.CodeOutputMode, s.OutputMode)
	}

	return rm
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

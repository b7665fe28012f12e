package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "lenskit.yaml")
	content := `
lenskit:
  output_mode: json
  redact_secrets: true
  split_size_bytes: 1048576
  docs_output_mode: text
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProfile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.RedactSecrets {
		t.Fatal("expected redact_secrets true")
	}
	if cfg.SplitSizeBytes != 1048576 {
		t.Fatalf("expected split_size_bytes 1048576, got %d", cfg.SplitSizeBytes)
	}
}

func TestResolveModeDefaultsToCode(t *testing.T) {
	cfg := &ProfileSettings{OutputMode: "json", DocsOutputMode: "text"}

	code := cfg.Resolve("")
	if code.OutputMode != "json" {
		t.Fatalf("expected fallback to general output_mode, got %s", code.OutputMode)
	}

	docs := cfg.Resolve("docs")
	if docs.OutputMode != "text" {
		t.Fatalf("expected docs_output_mode override, got %s", docs.OutputMode)
	}
}

func TestIsValidMode(t *testing.T) {
	if !IsValidMode("") {
		t.Fatal("empty mode must be valid")
	}
	if !IsValidMode("docs") {
		t.Fatal("docs must be valid")
	}
	if IsValidMode("bogus") {
		t.Fatal("unknown mode must be invalid")
	}
}

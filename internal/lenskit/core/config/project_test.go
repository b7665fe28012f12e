package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".lenskit.toml")
	content := `
[scan]
ext_allow = [".go", ".md"]
respect_gitignore = true

[chunk]
max_size = 4096
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProjectConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunk.MaxSize != 4096 {
		t.Fatalf("expected overridden max_size, got %d", cfg.Chunk.MaxSize)
	}
	if cfg.Chunk.MinLines != 200 {
		t.Fatalf("expected default min_lines 200, got %d", cfg.Chunk.MinLines)
	}
	if len(cfg.Scan.ExtAllow) != 2 {
		t.Fatalf("expected 2 ext_allow entries, got %v", cfg.Scan.ExtAllow)
	}
}

func TestConfigSHA256Deterministic(t *testing.T) {
	project := DefaultProjectConfig()
	profile := ProfileSettings{OutputMode: "json"}

	a, err := ConfigSHA256(project, profile)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ConfigSHA256(project, profile)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected deterministic hash for identical config")
	}

	profile.OutputMode = "text"
	c, err := ConfigSHA256(project, profile)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Fatal("expected hash to change when config changes")
	}
}

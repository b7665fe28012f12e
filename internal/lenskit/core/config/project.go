package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
)

// ProjectConfig is the `.lenskit.toml` scan/chunk parameter file: the
// project-local analogue of a linter's `.golangci.toml`.
type ProjectConfig struct {
	Scan  ScanConfig  `toml:"scan"`
	Chunk ChunkConfig `toml:"chunk"`
}

// ScanConfig governs Scanner behavior.
type ScanConfig struct {
	ExtAllow         []string `toml:"ext_allow"`
	ExtDeny          []string `toml:"ext_deny"`
	HiddenWhitelist  []string `toml:"hidden_whitelist"`
	HiddenDenylist   []string `toml:"hidden_denylist"`
	RespectGitignore bool     `toml:"respect_gitignore"`
}

// ChunkConfig governs Chunker bounds, defaulting to spec.md §4.3's
// 2048/8192/200/400.
type ChunkConfig struct {
	MinSize  int `toml:"min_size"`
	MaxSize  int `toml:"max_size"`
	MinLines int `toml:"min_lines"`
	MaxLines int `toml:"max_lines"`
}

// DefaultProjectConfig matches the pipeline's built-in defaults.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Scan: ScanConfig{
			RespectGitignore: true,
		},
		Chunk: ChunkConfig{
			MinSize: 2048, MaxSize: 8192, MinLines: 200, MaxLines: 400,
		},
	}
}

// LoadProjectConfig reads a `.lenskit.toml` file, applying defaults for
// any zero-valued chunk bounds.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	cfg := DefaultProjectConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	applyChunkDefaults(&cfg.Chunk)
	return &cfg, nil
}

func applyChunkDefaults(c *ChunkConfig) {
	d := DefaultProjectConfig().Chunk
	if c.MinSize == 0 {
		c.MinSize = d.MinSize
	}
	if c.MaxSize == 0 {
		c.MaxSize = d.MaxSize
	}
	if c.MinLines == 0 {
		c.MinLines = d.MinLines
	}
	if c.MaxLines == 0 {
		c.MaxLines = d.MaxLines
	}
}

// ConfigSHA256 computes generator.config_sha256 from the canonical JSON
// re-encoding of the combined project and profile configuration. This
// value is mandatory on every emitted sidecar/manifest; its absence is
// a config_invalid error.
func ConfigSHA256(project ProjectConfig, profile ProfileSettings) (string, error) {
	combined := struct {
		Project ProjectConfig   `json:"project"`
		Profile ProfileSettings `json:"profile"`
	}{project, profile}

	data, err := json.Marshal(combined)
	if err != nil {
		return "", err
	}
	return hashutil.HashBytes(data), nil
}

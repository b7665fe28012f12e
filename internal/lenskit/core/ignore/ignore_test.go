package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewMatcherNoGitignore(t *testing.T) {
	tmpDir := t.TempDir()

	m, err := NewMatcher(tmpDir)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if m.Match(filepath.Join(tmpDir, "test.log")) {
		t.Error("with no .gitignore, nothing should be ignored")
	}
}

func TestMatchExtensionPattern(t *testing.T) {
	tmpDir := t.TempDir()
	writeGitignore(t, tmpDir, "*.log\n")

	m, _ := NewMatcher(tmpDir)

	tests := []struct {
		path     string
		expected bool
	}{
		{"debug.log", true},
		{"logs/error.log", true},
		{"readme.txt", false},
	}
	for _, tt := range tests {
		if got := m.Match(filepath.Join(tmpDir, tt.path)); got != tt.expected {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestMatchDirectoryPattern(t *testing.T) {
	tmpDir := t.TempDir()
	writeGitignore(t, tmpDir, "node_modules/\n")

	m, _ := NewMatcher(tmpDir)

	if !m.Match(filepath.Join(tmpDir, "node_modules/package.json")) {
		t.Error("expected node_modules/package.json to be ignored")
	}
	if m.Match(filepath.Join(tmpDir, "my_node_modules")) {
		t.Error("unrelated directory name should not match")
	}
}

func TestMatchOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeGitignore(t, tmpDir, "*.log\n")

	m, _ := NewMatcher(tmpDir)
	if m.Match("/some/other/path/debug.log") {
		t.Error("paths outside root should never match")
	}
}

func TestMatchNegationPattern(t *testing.T) {
	tmpDir := t.TempDir()
	writeGitignore(t, tmpDir, "*.log\n!important.log\n")

	m, _ := NewMatcher(tmpDir)
	if !m.Match(filepath.Join(tmpDir, "debug.log")) {
		t.Error("expected debug.log to be ignored")
	}
	if m.Match(filepath.Join(tmpDir, "important.log")) {
		t.Error("negated pattern should not be ignored")
	}
}

func TestRootPath(t *testing.T) {
	tmpDir := t.TempDir()
	m, err := NewMatcher(tmpDir)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if m.RootPath() != tmpDir {
		t.Errorf("RootPath() = %q, want %q", m.RootPath(), tmpDir)
	}
}

func writeGitignore(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write .gitignore: %v", err)
	}
}

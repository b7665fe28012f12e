// Package ignore wraps .gitignore pattern matching for the scanner.
package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher answers whether a path under its root should be skipped.
type Matcher struct {
	rootPath string
	ignorer  *gitignore.GitIgnore
}

// NewMatcher loads root's .gitignore, or an empty matcher if none exists.
func NewMatcher(rootPath string) (*Matcher, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	ignorer, err := gitignore.CompileIgnoreFile(filepath.Join(absPath, ".gitignore"))
	if err != nil {
		ignorer = gitignore.CompileIgnoreLines()
	}

	return &Matcher{rootPath: absPath, ignorer: ignorer}, nil
}

// Match reports whether path (absolute or root-relative) is ignored.
func (m *Matcher) Match(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if !strings.HasPrefix(absPath, m.rootPath) {
		return false
	}

	relPath, err := filepath.Rel(m.rootPath, absPath)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return false
	}

	return m.ignorer.MatchesPath(relPath) || m.ignorer.MatchesPath(relPath+"/")
}

// RootPath returns the matcher's absolute root.
func (m *Matcher) RootPath() string {
	return m.rootPath
}

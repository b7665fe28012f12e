// Package scan walks a repository tree and produces classified FileInfo
// records with stable, order-independent identifiers.
package scan

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/ignore"
)

// Classification is the coarse file category used for layer/section
// inference downstream.
type Classification string

const (
	ClassSource Classification = "source"
	ClassDoc    Classification = "doc"
	ClassTest   Classification = "test"
	ClassConfig Classification = "config"
	ClassData   Classification = "data"
	ClassOther  Classification = "other"
)

// FileInfo describes one scanned file.
type FileInfo struct {
	FileID     string         `json:"file_id"`
	Path       string         `json:"path"`
	Size       int64          `json:"size"`
	Class      Classification `json:"class"`
	IsText     bool           `json:"is_text"`
	SHA256     string         `json:"sha256,omitempty"`
	HashStatus hashutil.Status `json:"hash_status,omitempty"`
	Skipped    bool           `json:"skipped,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// RepoScan is the output of a scan run.
type RepoScan struct {
	Name  string     `json:"name"`
	Root  string     `json:"root"`
	Files []FileInfo `json:"files"`
}

// Options controls scan behavior.
type Options struct {
	Root           string
	IncludeHidden  bool
	CalculateHash  bool
	MaxBytes       int64 // 0 means unlimited
	ExtFilters     []string
	PathGlobs      []string
	HonorGitignore bool
}

// hiddenWhitelist lists dot-prefixed names that are never treated as
// hidden even when include_hidden is false.
var hiddenWhitelist = map[string]bool{
	".env.example": true,
	".gitignore":   true,
	".gitattributes": true,
}

// hiddenDenylistPatterns lists dot-prefixed glob patterns excluded even
// when include_hidden is true, unless explicitly whitelisted above.
var hiddenDenylistPatterns = []string{".env", ".env.*", ".env.local"}

func isDenylisted(name string) bool {
	if hiddenWhitelist[name] {
		return false
	}
	for _, pat := range hiddenDenylistPatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// isHiddenComponent reports whether a single path component should be
// excluded under the scanner's hidden-file policy.
func isHiddenComponent(name string, includeHidden bool) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	isDot := strings.HasPrefix(name, ".")
	if !includeHidden {
		if !isDot {
			return false
		}
		return !hiddenWhitelist[name]
	}
	if isDot {
		return isDenylisted(name)
	}
	return false
}

// normalizePath converts a path to forward-slash, repo-relative form.
func normalizePath(rel string) string {
	return filepath.ToSlash(rel)
}

// isExcludedPath rejects absolute paths and traversal components, per
// the scanner's path-normalization policy.
func isExcludedPath(rel string) bool {
	if filepath.IsAbs(rel) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// Classify assigns a coarse classification from path and extension.
func Classify(relPath string) Classification {
	lower := strings.ToLower(relPath)
	base := filepath.Base(lower)
	ext := filepath.Ext(lower)

	switch {
	case strings.Contains(lower, "test") && (strings.HasSuffix(base, "_test.go") ||
		strings.HasPrefix(base, "test_") || strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, "/test/")):
		return ClassTest
	case ext == ".md" || ext == ".rst" || ext == ".txt" || base == "readme":
		return ClassDoc
	case ext == ".yaml" || ext == ".yml" || ext == ".toml" || ext == ".ini" ||
		ext == ".cfg" || base == "dockerfile" || base == "makefile":
		return ClassConfig
	case ext == ".json" || ext == ".jsonl" || ext == ".csv" || ext == ".tsv":
		return ClassData
	case ext == ".go" || ext == ".py" || ext == ".rs" || ext == ".js" ||
		ext == ".ts" || ext == ".java" || ext == ".c" || ext == ".cpp" ||
		ext == ".h" || ext == ".sh":
		return ClassSource
	default:
		return ClassOther
	}
}

// sniffIsText reports whether the given bytes look like text: no NUL
// byte in the first 8 KiB and the content is valid UTF-8.
func sniffIsText(b []byte) bool {
	n := len(b)
	if n > 8192 {
		n = 8192
	}
	head := b[:n]
	if bytes.IndexByte(head, 0) != -1 {
		return false
	}
	return isValidUTF8Prefix(head)
}

func isValidUTF8Prefix(b []byte) bool {
	for len(b) > 0 {
		r, size := decodeRuneLenient(b)
		if r == 0xFFFD && size == 1 {
			return false
		}
		b = b[size:]
	}
	return true
}

func decodeRuneLenient(b []byte) (rune, int) {
	if len(b) == 0 {
		return 0xFFFD, 0
	}
	c := b[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0 && len(b) >= 2:
		return rune(c), 2
	case c&0xF0 == 0xE0 && len(b) >= 3:
		return rune(c), 3
	case c&0xF8 == 0xF0 && len(b) >= 4:
		return rune(c), 4
	default:
		return 0xFFFD, 1
	}
}

// fileID computes FILE:f_<short-sha1(repo||relpath)>, stable across
// runs for identical inputs and independent of scan/iteration order.
func fileID(repoName, normalizedRelPath string) string {
	sum := sha1.Sum([]byte(repoName + normalizedRelPath))
	return "FILE:f_" + hex.EncodeToString(sum[:])[:16]
}

func matchesAny(globs []string, path string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

func matchesExt(exts []string, path string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		want := e
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}

// Scan walks opts.Root and returns a RepoScan. Per-file I/O failures are
// recorded as skipped entries with a reason rather than aborting the run.
func Scan(ctx context.Context, opts Options) (*RepoScan, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}

	var matcher *ignore.Matcher
	if opts.HonorGitignore {
		m, err := ignore.NewMatcher(root)
		if err != nil {
			return nil, err
		}
		matcher = m
	}

	var files []FileInfo
	repoName := filepath.Base(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = normalizePath(rel)

		for _, part := range strings.Split(rel, "/") {
			if isHiddenComponent(part, opts.IncludeHidden) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}

		if isExcludedPath(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if matcher != nil && matcher.Match(path) {
				return fs.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.Match(path) {
			return nil
		}
		if !matchesExt(opts.ExtFilters, rel) || !matchesAny(opts.PathGlobs, rel) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			files = append(files, FileInfo{
				FileID:  fileID(repoName, rel),
				Path:    rel,
				Skipped: true,
				Reason:  statErr.Error(),
			})
			return nil
		}

		fi := FileInfo{
			FileID: fileID(repoName, rel),
			Path:   rel,
			Size:   info.Size(),
			Class:  Classify(rel),
		}

		if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
			fi.Skipped = true
			fi.Reason = "exceeds max_bytes"
			files = append(files, fi)
			return nil
		}

		head, readErr := readHead(path, 8192)
		if readErr != nil {
			fi.Skipped = true
			fi.Reason = readErr.Error()
			files = append(files, fi)
			return nil
		}
		fi.IsText = sniffIsText(head)

		if opts.CalculateHash {
			sum, _, status := hashutil.HashFile(path)
			fi.SHA256 = sum
			fi.HashStatus = status
			if status != hashutil.StatusOK {
				fi.Skipped = true
				fi.Reason = "hash failed: " + string(status)
			}
		}

		files = append(files, fi)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &RepoScan{
		Name:  filepath.Base(root),
		Root:  root,
		Files: files,
	}, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, err
	}
	return buf[:read], nil
}

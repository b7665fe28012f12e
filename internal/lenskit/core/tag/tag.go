// Package tag derives semantic metadata — layer, section, artifact
// type and concepts — as a pure function of a repo-relative path and
// its content.
package tag

import (
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Layer is the coarse architectural bucket a file belongs to.
type Layer string

const (
	LayerCore      Layer = "core"
	LayerService   Layer = "service"
	LayerCLI       Layer = "cli"
	LayerAdapters  Layer = "adapters"
	LayerRetrieval Layer = "retrieval"
	LayerTest      Layer = "test"
	LayerDocs      Layer = "docs"
	LayerUnknown   Layer = "unknown"
)

// ArtifactType is the coarse content kind derived from extension.
type ArtifactType string

const (
	ArtifactCode          ArtifactType = "code"
	ArtifactDocumentation ArtifactType = "documentation"
	ArtifactConfig        ArtifactType = "config"
	ArtifactData          ArtifactType = "data"
)

// Tags is the output of tagging a single file.
type Tags struct {
	Layer        Layer        `json:"layer"`
	Section      string       `json:"section"`
	ArtifactType ArtifactType `json:"artifact_type"`
	Concepts     []string     `json:"concepts"`
}

var layerPrecedence = []struct {
	layer Layer
	part  string
}{
	{LayerCore, "core"},
	{LayerService, "service"},
	{LayerCLI, "cli"},
	{LayerAdapters, "adapters"},
	{LayerRetrieval, "retrieval"},
	{LayerTest, "test"},
	{LayerDocs, "docs"},
}

func hasPart(ps []string, name string) bool {
	for _, p := range ps {
		if p == name {
			return true
		}
	}
	return false
}

func pathParts(p string) []string {
	return strings.Split(strings.Trim(path.ToSlash(p), "/"), "/")
}

// inferLayer applies the fixed precedence core > service > cli >
// adapters > retrieval > test > docs > unknown over path components.
func inferLayer(relPath string) Layer {
	ps := pathParts(relPath)
	base := strings.ToLower(path.Base(relPath))
	isTestFile := strings.HasSuffix(base, "_test.go") || strings.HasPrefix(base, "test_")

	for _, candidate := range layerPrecedence {
		if candidate.layer == LayerTest {
			if hasPart(ps, "test") || hasPart(ps, "tests") || isTestFile {
				return LayerTest
			}
			continue
		}
		if hasPart(ps, candidate.part) {
			return candidate.layer
		}
	}
	return LayerUnknown
}

var testPrefixes = []string{"test_", "Test"}

// section returns the file stem with any leading test marker stripped.
func section(relPath string) string {
	base := path.Base(relPath)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, "_test")
	for _, p := range testPrefixes {
		base = strings.TrimPrefix(base, p)
	}
	return base
}

var extArtifactType = map[string]ArtifactType{
	".go": ArtifactCode, ".py": ArtifactCode, ".rs": ArtifactCode,
	".js": ArtifactCode, ".ts": ArtifactCode, ".java": ArtifactCode,
	".c": ArtifactCode, ".cpp": ArtifactCode, ".h": ArtifactCode, ".sh": ArtifactCode,
	".md": ArtifactDocumentation, ".rst": ArtifactDocumentation, ".txt": ArtifactDocumentation,
	".yaml": ArtifactConfig, ".yml": ArtifactConfig, ".toml": ArtifactConfig,
	".ini": ArtifactConfig, ".cfg": ArtifactConfig,
	".json": ArtifactData, ".jsonl": ArtifactData, ".csv": ArtifactData, ".tsv": ArtifactData,
}

func inferArtifactType(relPath string) ArtifactType {
	ext := strings.ToLower(path.Ext(relPath))
	if t, ok := extArtifactType[ext]; ok {
		return t
	}
	return ArtifactCode
}

// keywordConcepts maps a keyword hit in the content to a stable concept
// name. Checked in this declared order so output ordering is stable.
var keywordConcepts = []struct {
	keyword string
	concept string
}{
	{"bundle", "bundling"},
	{"chunk", "chunking"},
	{"query", "retrieval"},
	{"redact", "redaction"},
	{"index", "indexing"},
	{"scan", "scanning"},
	{"manifest", "manifesting"},
}

var symbolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?m)^\s*fn\s+([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?m)^\s*func\s+([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`),
}

func extractSymbols(content string) []string {
	var symbols []string
	seen := map[string]bool{}
	for _, re := range symbolPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if !seen[name] {
				seen[name] = true
				symbols = append(symbols, name)
			}
		}
	}
	return symbols
}

// LanguageFromExtension derives a language identifier from a filename's
// extension, or "" for an extensionless file.
func LanguageFromExtension(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// ExtractHTMLTitle returns the trimmed text of the first <title> element
// found in HTML content, or "" if none is present or parsing fails.
func ExtractHTMLTitle(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Tag derives semantic tags for one file as a pure function of its
// repo-relative path and content.
func Tag(relPath, content string) Tags {
	lowerContent := strings.ToLower(content)

	var concepts []string
	seen := map[string]bool{}
	for _, kc := range keywordConcepts {
		if strings.Contains(lowerContent, kc.keyword) && !seen[kc.concept] {
			seen[kc.concept] = true
			concepts = append(concepts, kc.concept)
		}
	}
	concepts = append(concepts, extractSymbols(content)...)

	return Tags{
		Layer:        inferLayer(relPath),
		Section:      section(relPath),
		ArtifactType: inferArtifactType(relPath),
		Concepts:     concepts,
	}
}

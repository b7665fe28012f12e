package tag

import "testing"

func TestInferLayerPrecedence(t *testing.T) {
	cases := map[string]Layer{
		"internal/core/service/x.go": LayerCore,
		"internal/service/cli/y.go":  LayerService,
		"cmd/cli/main.go":            LayerCLI,
		"internal/adapters/db.go":    LayerAdapters,
		"internal/retrieval/q.go":    LayerRetrieval,
		"internal/test/helpers.go":   LayerTest,
		"docs/README.md":             LayerDocs,
		"misc/unknown.xyz":           LayerUnknown,
	}
	for path, want := range cases {
		if got := inferLayer(path); got != want {
			t.Errorf("inferLayer(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSectionStripsTestPrefixes(t *testing.T) {
	cases := map[string]string{
		"internal/scan/scan_test.go": "scan",
		"test_chunker.py":            "chunker",
		"chunk.go":                   "chunk",
	}
	for path, want := range cases {
		if got := section(path); got != want {
			t.Errorf("section(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInferArtifactType(t *testing.T) {
	if inferArtifactType("a.go") != ArtifactCode {
		t.Error("expected code")
	}
	if inferArtifactType("a.md") != ArtifactDocumentation {
		t.Error("expected documentation")
	}
	if inferArtifactType("a.yaml") != ArtifactConfig {
		t.Error("expected config")
	}
	if inferArtifactType("a.json") != ArtifactData {
		t.Error("expected data")
	}
}

func TestTagConceptsAndSymbols(t *testing.T) {
	content := "def chunk_file(path):\n    query_index(path)\n"
	tags := Tag("core/chunker.py", content)

	if tags.Layer != LayerCore {
		t.Errorf("expected core layer, got %s", tags.Layer)
	}
	if tags.Section != "chunker" {
		t.Errorf("expected section chunker, got %s", tags.Section)
	}

	want := map[string]bool{"chunking": true, "retrieval": true, "chunk_file": true, "query_index": true}
	for _, c := range tags.Concepts {
		delete(want, c)
	}
	if len(want) != 0 {
		t.Errorf("missing expected concepts: %v, got %v", want, tags.Concepts)
	}
}

func TestExtractHTMLTitle(t *testing.T) {
	html := "<html><head><title>  Hello World  </title></head><body></body></html>"
	if got := ExtractHTMLTitle(html); got != "Hello World" {
		t.Errorf("expected trimmed title, got %q", got)
	}
}

func TestExtractHTMLTitleAbsent(t *testing.T) {
	if got := ExtractHTMLTitle("<html><body>no title</body></html>"); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

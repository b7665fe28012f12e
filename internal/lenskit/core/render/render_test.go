package render

import (
	"strings"
	"testing"
)

func sampleDoc() string {
	opts := Options{
		RepoName:      "repo",
		StructureText: "structure body\n",
		IndexText:     "index body\n",
		ManifestText:  "manifest body\n",
	}
	files := []FileBlock{
		{FileID: "FILE:f_aaaa", Path: "a.go", Content: "package a\n"},
		{FileID: "FILE:f_bbbb", Path: "b.go", Content: "package b\n"},
	}
	return Render(opts, files)
}

func TestRenderZoneSymmetry(t *testing.T) {
	doc := sampleDoc()
	if err := CheckZoneSymmetry(doc); err != nil {
		t.Fatalf("expected symmetric zones, got %v", err)
	}
}

func TestRenderContainsReadingPolicy(t *testing.T) {
	doc := sampleDoc()
	if !strings.Contains(doc, "READING_POLICY") {
		t.Fatal("expected READING_POLICY sentinel header")
	}
}

func TestRenderFileMarkers(t *testing.T) {
	doc := sampleDoc()
	if !strings.Contains(doc, "<!-- FILE_START path=a.go -->") {
		t.Fatal("expected FILE_START marker for a.go")
	}
	if !strings.Contains(doc, "<!-- FILE_END path=a.go -->") {
		t.Fatal("expected FILE_END marker for a.go")
	}
}

func TestCheckZoneSymmetryDetectsUnclosed(t *testing.T) {
	broken := "<!-- zone:begin type=meta id=m1 -->\nbody\n"
	if err := CheckZoneSymmetry(broken); err == nil {
		t.Fatal("expected error for unclosed zone")
	}
}

func TestCheckZoneSymmetryDetectsMismatch(t *testing.T) {
	broken := "<!-- zone:begin type=meta id=m1 -->\nbody\n<!-- zone:end type=meta id=m2 -->\n"
	if err := CheckZoneSymmetry(broken); err == nil {
		t.Fatal("expected error for id mismatch")
	}
}

func TestCheckZoneSymmetryDetectsStrayEnd(t *testing.T) {
	broken := "<!-- zone:end type=meta id=m1 -->\n"
	if err := CheckZoneSymmetry(broken); err == nil {
		t.Fatal("expected error for end without begin")
	}
}

func TestSplitNoSplitWhenZero(t *testing.T) {
	doc := sampleDoc()
	parts := Split(doc, 0)
	if len(parts) != 1 || parts[0] != doc {
		t.Fatal("expected a single part when splitSizeBytes <= 0")
	}
}

func TestSplitBreaksAtZoneBoundaries(t *testing.T) {
	doc := sampleDoc()
	parts := Split(doc, 200)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts for a small split size, got %d", len(parts))
	}
	for _, p := range parts {
		if err := CheckZoneSymmetry(p); err != nil {
			t.Fatalf("each part must contain only whole zones: %v", err)
		}
	}
	if strings.Join(parts, "") != doc {
		t.Fatal("parts must reconstitute the original document exactly")
	}
}

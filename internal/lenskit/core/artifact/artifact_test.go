package artifact

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
)

func TestEmitChunkJSONLOrdering(t *testing.T) {
	records := []ChunkRecord{
		ChunkRecordFrom("c2", "f1", "b.go", 0, 10, 1, 2, "sha2", 10, "go", "b", "core", "code", nil, "func b() {}"),
		ChunkRecordFrom("c1", "f1", "a.go", 10, 20, 3, 4, "sha1", 10, "go", "a", "core", "code", nil, "func a2() {}"),
		ChunkRecordFrom("c0", "f1", "a.go", 0, 10, 1, 2, "sha0", 10, "go", "a", "core", "code", nil, "func a() {}"),
	}
	data, err := EmitChunkJSONL(records)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var first ChunkRecord
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.ChunkID != "c0" {
		t.Fatalf("expected ordering by (path, start_byte): first chunk should be c0, got %s", first.ChunkID)
	}
}

func TestChunkRecordLegacyAliases(t *testing.T) {
	r := ChunkRecordFrom("c1", "f1", "a.go", 5, 15, 2, 3, "shaX", 10, "go", "a", "core", "code", []string{"x"}, "func x() {}")
	if r.ByteOffsetStart != r.StartByte || r.LineStart != r.StartLine || r.ContentSHA256 != r.SHA256 {
		t.Fatal("expected legacy aliases to mirror canonical fields")
	}
}

func TestEmitDumpIndexRejectsInvalidHash(t *testing.T) {
	d := DumpIndex{
		Contract: "dump-index",
		RunID:    "run1",
		Artifacts: map[string]DumpIndexEntry{
			"merge_md": {Path: "x.md", SHA256: "ERROR", Bytes: 10, ContentType: "text/markdown", Role: "canonical_md"},
		},
	}
	if _, err := EmitDumpIndex(d); err == nil {
		t.Fatal("expected error for ERROR sentinel sha256")
	}
}

func TestEmitDumpIndexAcceptsValidHash(t *testing.T) {
	d := DumpIndex{
		Contract: "dump-index",
		RunID:    "run1",
		Artifacts: map[string]DumpIndexEntry{
			"merge_md": {Path: "x.md", SHA256: strings64('a'), Bytes: 10, ContentType: "text/markdown", Role: "canonical_md"},
		},
	}
	if _, err := EmitDumpIndex(d); err != nil {
		t.Fatalf("expected valid hash to be accepted, got %v", err)
	}
}

func strings64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

func TestBuildBundleManifestConvergesAndVerifies(t *testing.T) {
	others := []ManifestArtifact{
		{Role: string(contracts.RoleCanonicalMD), Path: "x_merge.md", ContentType: "text/markdown",
			Bytes: 100, SHA256: strings64('b'), Interpretation: ManifestInterpretation{Mode: "role_only"}},
	}
	self := SelfEntrySpec{Role: contracts.RoleDerivedManifestJSON, Path: "x.bundle.manifest.json", ContentType: "application/json"}
	gen := Generator{Name: "lenskit", Version: "1.0.0", ConfigSHA256: strings64('c')}

	completeness := Completeness{IsComplete: true, Policy: "single", Parts: []string{"x_merge.md"}, PrimaryPart: "x_merge.md"}
	data, sum, err := BuildBundleManifest(others, self, gen, "run1", "2026-01-01T00:00:00Z", ManifestLinks{CanonicalDumpIndexSHA256: strings64('d')}, ManifestCapabilities{FTS5BM25: true}, completeness)
	if err != nil {
		t.Fatal(err)
	}

	var manifest BundleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatal(err)
	}

	var selfFound *ManifestArtifact
	for i := range manifest.Artifacts {
		if manifest.Artifacts[i].Role == string(contracts.RoleDerivedManifestJSON) {
			selfFound = &manifest.Artifacts[i]
		}
	}
	if selfFound == nil {
		t.Fatal("expected self entry present in manifest artifacts")
	}
	if selfFound.SHA256 != sum {
		t.Fatalf("self entry sha256 %q must equal returned hash %q", selfFound.SHA256, sum)
	}
	if selfFound.Bytes != int64(len(data)) {
		t.Fatalf("self entry bytes %d must equal actual document length %d", selfFound.Bytes, len(data))
	}
}

func TestBundleManifestArtifactOrder(t *testing.T) {
	artifacts := []ManifestArtifact{
		{Role: string(contracts.RolePRDeltaJSON)},
		{Role: string(contracts.RoleCanonicalMD)},
		{Role: string(contracts.RoleSQLiteIndex)},
	}
	SortArtifactsByRole(artifacts)
	if artifacts[0].Role != string(contracts.RoleCanonicalMD) {
		t.Fatalf("expected canonical_md first, got %s", artifacts[0].Role)
	}
}

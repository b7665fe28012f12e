package rangeref

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFiles(t *testing.T, manifestJSON, artifactContent string) (manifestPath string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x_merge.md"), []byte(artifactContent), 0o644); err != nil {
		t.Fatal(err)
	}
	manifestPath = filepath.Join(dir, "x.bundle.manifest.json")
	if err := os.WriteFile(manifestPath, []byte(manifestJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return manifestPath
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestResolveBundleManifestHappyPath(t *testing.T) {
	content := "hello world content"
	manifest := `{
		"kind": "repolens.bundle.manifest",
		"run_id": "run1",
		"generator": {"config_sha256": "` + sha256Hex("cfg") + `"},
		"artifacts": [
			{"role": "canonical_md", "path": "x_merge.md"}
		]
	}`
	manifestPath := writeTestFiles(t, manifest, content)

	ref := RangeRef{
		ArtifactRole: "canonical_md",
		StartByte:    0,
		EndByte:      int64(len(content)),
	}

	res, err := Resolve(manifestPath, ref)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != content {
		t.Fatalf("expected text %q, got %q", content, res.Text)
	}
	if res.Provenance.RunID != "run1" {
		t.Fatalf("expected run_id run1, got %s", res.Provenance.RunID)
	}
	if res.Provenance.ConfigSHA256 == "" {
		t.Fatal("expected config_sha256 carried through provenance")
	}
}

func TestResolveDumpIndexHappyPath(t *testing.T) {
	content := "dump index content"
	manifest := `{
		"contract": "dump-index",
		"run_id": "run2",
		"artifacts": {
			"canonical_md": {"role": "canonical_md", "path": "x_merge.md"}
		}
	}`
	manifestPath := writeTestFiles(t, manifest, content)

	ref := RangeRef{ArtifactRole: "canonical_md", StartByte: 0, EndByte: int64(len(content))}
	res, err := Resolve(manifestPath, ref)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != content {
		t.Fatalf("expected text %q, got %q", content, res.Text)
	}
}

func TestResolveFilePathMismatchErrors(t *testing.T) {
	content := "abc"
	manifest := `{
		"kind": "repolens.bundle.manifest",
		"run_id": "run1",
		"artifacts": [{"role": "canonical_md", "path": "x_merge.md"}]
	}`
	manifestPath := writeTestFiles(t, manifest, content)

	ref := RangeRef{ArtifactRole: "canonical_md", FilePath: "wrong.md", StartByte: 0, EndByte: 3}
	if _, err := Resolve(manifestPath, ref); err == nil {
		t.Fatal("expected file_path mismatch to error")
	}
}

func TestResolveOutOfBoundsErrors(t *testing.T) {
	content := "short"
	manifest := `{
		"kind": "repolens.bundle.manifest",
		"run_id": "run1",
		"artifacts": [{"role": "canonical_md", "path": "x_merge.md"}]
	}`
	manifestPath := writeTestFiles(t, manifest, content)

	ref := RangeRef{ArtifactRole: "canonical_md", StartByte: 0, EndByte: 999}
	if _, err := Resolve(manifestPath, ref); err == nil {
		t.Fatal("expected out-of-bounds range to error")
	}
}

func TestResolveHashMismatchErrors(t *testing.T) {
	content := "verify me"
	manifest := `{
		"kind": "repolens.bundle.manifest",
		"run_id": "run1",
		"artifacts": [{"role": "canonical_md", "path": "x_merge.md"}]
	}`
	manifestPath := writeTestFiles(t, manifest, content)

	ref := RangeRef{
		ArtifactRole:  "canonical_md",
		StartByte:     0,
		EndByte:       int64(len(content)),
		ContentSHA256: sha256Hex("different content"),
	}
	if _, err := Resolve(manifestPath, ref); err == nil {
		t.Fatal("expected content_sha256 mismatch to error")
	}
}

func TestResolveUnsupportedManifestFormatErrors(t *testing.T) {
	manifestPath := writeTestFiles(t, `{"something":"else"}`, "x")
	ref := RangeRef{ArtifactRole: "canonical_md", StartByte: 0, EndByte: 1}
	if _, err := Resolve(manifestPath, ref); err == nil {
		t.Fatal("expected unsupported manifest format to error")
	}
}

func TestResolveMissingRoleErrors(t *testing.T) {
	manifest := `{
		"kind": "repolens.bundle.manifest",
		"run_id": "run1",
		"artifacts": [{"role": "sqlite_index", "path": "x.sqlite"}]
	}`
	manifestPath := writeTestFiles(t, manifest, "x")
	ref := RangeRef{ArtifactRole: "canonical_md", StartByte: 0, EndByte: 1}
	if _, err := Resolve(manifestPath, ref); err == nil {
		t.Fatal("expected missing role to error")
	}
}

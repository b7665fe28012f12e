// Package verify checks a bundle manifest's completeness against the
// artifacts it claims to describe: that every listed part exists, that
// every artifact's recorded hash matches the bytes on disk, that no
// emitted content was silently truncated, and that every zone marker
// is present and symmetric.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/artifact"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/render"
	"github.com/heimgewebe/lenskit/internal/lenskit/schemas"
)

// Level selects how thorough a verification run is.
type Level string

const (
	LevelBasic Level = "basic"
	LevelFull  Level = "full"
)

// forbiddenMarkers lists substrings (case-insensitive) that indicate an
// emitted artifact was silently cut short rather than fully written.
var forbiddenMarkers = []string{
	"truncated at",
	"[truncated]",
	"content truncated",
	"... (truncated)",
}

const expectedBytesOverheadWaiver = 64 * 1024

// LoadManifest reads and JSON-decodes bundle.json from bundleDir.
func LoadManifest(bundleDir string) (*artifact.BundleManifest, []byte, error) {
	path := filepath.Join(bundleDir, "bundle.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, lenserr.IOError("read", path, err)
	}
	var m artifact.BundleManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, lenserr.New(lenserr.KindSchemaViolation, "bundle.json is not valid JSON", err)
	}
	return &m, data, nil
}

// Verify loads bundle.json from bundleDir, schema-validates it, and
// runs basic checks (and full checks, at LevelFull). The first failure
// terminates verification and is returned as a *lenserr.LensError
// naming which check failed.
func Verify(bundleDir string, level Level) error {
	manifest, raw, err := LoadManifest(bundleDir)
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return lenserr.New(lenserr.KindSchemaViolation, "bundle.json is not valid JSON", err)
	}
	if err := schemas.Validate(string(contracts.SchemaBundleManifestV1), instance); err != nil {
		return lenserr.SchemaViolation(string(contracts.SchemaBundleManifestV1), err)
	}

	if err := VerifyBasic(bundleDir, manifest); err != nil {
		return err
	}
	if level == LevelFull {
		return VerifyFull(bundleDir, manifest)
	}
	return nil
}

// VerifyBasic checks that every completeness.parts entry exists on disk.
func VerifyBasic(bundleDir string, manifest *artifact.BundleManifest) error {
	if len(manifest.Completeness.Parts) == 0 {
		return lenserr.New(lenserr.KindSchemaViolation,
			"no parts listed (completeness.parts is empty or missing)", nil)
	}
	for _, part := range manifest.Completeness.Parts {
		p := filepath.Join(bundleDir, part)
		if _, err := os.Stat(p); err != nil {
			return lenserr.New(lenserr.KindSchemaViolation,
				"missing part file: "+part, err)
		}
	}
	return nil
}

// VerifyFull runs the five ordered full-level checks, stopping at the
// first failure: primary_part membership, per-artifact SHA-256 match,
// absence of forbidden truncation markers, zone marker symmetry, and
// (when is_complete) a sane expected_bytes value.
func VerifyFull(bundleDir string, manifest *artifact.BundleManifest) error {
	c := manifest.Completeness

	if c.PrimaryPart != "" && !contains(c.Parts, c.PrimaryPart) {
		return lenserr.New(lenserr.KindSchemaViolation,
			"primary_part '"+c.PrimaryPart+"' is not listed in parts "+joinQuoted(c.Parts), nil)
	}

	if err := verifyPartsDeclared(c.Parts, manifest.Artifacts); err != nil {
		return err
	}

	if err := verifyArtifactHashes(bundleDir, manifest.Artifacts); err != nil {
		return err
	}

	if err := verifyNoTruncation(bundleDir, c.Parts); err != nil {
		return err
	}

	if err := verifyZones(bundleDir, manifest, c.Parts); err != nil {
		return err
	}

	return verifyExpectedBytes(c)
}

func verifyPartsDeclared(parts []string, artifacts []artifact.ManifestArtifact) error {
	for _, part := range parts {
		found := false
		for _, a := range artifacts {
			if a.Path == part {
				found = true
				break
			}
		}
		if !found {
			return lenserr.New(lenserr.KindSchemaViolation,
				"part '"+part+"' is not declared in artifacts", nil)
		}
	}
	return nil
}

func verifyArtifactHashes(bundleDir string, artifacts []artifact.ManifestArtifact) error {
	for _, a := range artifacts {
		if a.Role == string(contracts.RoleDerivedManifestJSON) {
			// The manifest's own entry records the hash of its
			// placeholder-version serialization (core/artifact's
			// fix-point build), not of the final bytes on disk — a
			// real hash can never equal a value embedded inside the
			// bytes it hashes, so it is not re-checked here.
			continue
		}
		p := filepath.Join(bundleDir, a.Path)
		data, err := os.ReadFile(p)
		if err != nil {
			return lenserr.IOError("read", p, err)
		}
		sum := sha256.Sum256(data)
		actual := hex.EncodeToString(sum[:])
		if actual != a.SHA256 {
			return lenserr.New(lenserr.KindHashMismatch,
				"SHA256 mismatch for "+a.Path, nil)
		}
		if int64(len(data)) != a.Bytes {
			return lenserr.New(lenserr.KindHashMismatch,
				"byte count mismatch for "+a.Path, nil)
		}
	}
	return nil
}

func verifyNoTruncation(bundleDir string, parts []string) error {
	for _, part := range parts {
		data, err := os.ReadFile(filepath.Join(bundleDir, part))
		if err != nil {
			return lenserr.IOError("read", part, err)
		}
		lower := strings.ToLower(string(data))
		for _, marker := range forbiddenMarkers {
			if strings.Contains(lower, marker) {
				return lenserr.New(lenserr.KindForbiddenPattern,
					"found truncation marker in "+part+": "+marker, nil)
			}
		}
	}
	return nil
}

// verifyZones requires every part to be internally zone-symmetric and
// requires the set of mandatory zone types for this bundle's kind to
// all be present somewhere across the parts. A pr-schau review bundle
// (one carrying a pr_delta_json artifact) requires only "summary"; a
// canonical merge bundle requires the full meta/structure/index/manifest
// set render.Render always emits.
func verifyZones(bundleDir string, manifest *artifact.BundleManifest, parts []string) error {
	var combined strings.Builder
	for _, part := range parts {
		data, err := os.ReadFile(filepath.Join(bundleDir, part))
		if err != nil {
			return lenserr.IOError("read", part, err)
		}
		combined.Write(data)
		combined.WriteString("\n")
	}
	doc := combined.String()

	if err := render.CheckZoneSymmetry(doc); err != nil {
		return err
	}

	for _, zoneType := range mandatoryZoneTypes(manifest) {
		marker := "type=" + zoneType + " "
		if !strings.Contains(doc, marker) {
			return lenserr.New(lenserr.KindZoneAsymmetry,
				"missing mandatory '"+zoneType+"' zone", nil)
		}
	}
	return nil
}

func mandatoryZoneTypes(manifest *artifact.BundleManifest) []string {
	for _, a := range manifest.Artifacts {
		if a.Role == string(contracts.RolePRDeltaJSON) {
			return []string{"summary"}
		}
	}
	return []string{"meta", "structure", "index", "manifest"}
}

func verifyExpectedBytes(c artifact.Completeness) error {
	if !c.IsComplete {
		return nil
	}
	if c.ExpectedBytes < 0 {
		return lenserr.New(lenserr.KindSchemaViolation,
			"invalid expected_bytes for complete bundle", nil)
	}

	overhead := c.EmittedBytes - c.ExpectedBytes
	if overhead < 0 {
		overhead = -overhead
	}
	if c.ExpectedBytes == 0 {
		if overhead >= expectedBytesOverheadWaiver {
			return lenserr.New(lenserr.KindSchemaViolation,
				"expected_bytes=0 waiver exceeded: emitted_bytes overhead too large", nil)
		}
		return nil
	}
	if overhead >= expectedBytesOverheadWaiver {
		return lenserr.New(lenserr.KindSchemaViolation,
			"emitted_bytes diverges from expected_bytes beyond the 64KiB overhead allowance", nil)
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func joinQuoted(xs []string) string {
	quoted := make([]string, len(xs))
	for i, x := range xs {
		quoted[i] = "'" + x + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

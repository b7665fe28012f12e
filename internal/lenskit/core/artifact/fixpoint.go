package artifact

import (
	"encoding/json"
	"strings"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
)

var placeholderSHA256 = strings.Repeat("0", 64)

// SelfEntrySpec describes the manifest's own artifact entry, minus the
// hash and byte count the fix-point algorithm fills in.
type SelfEntrySpec struct {
	Role        contracts.ArtifactRole
	Path        string
	ContentType string
}

// BuildBundleManifest runs the fix-point algorithm: it serializes the
// manifest with a fully-placeholder self-entry (64-hex zero sha, zero
// bytes), and records that serialization's hash as the self-entry's
// permanent SHA256 — a real hash can never equal a value embedded
// inside the bytes it is the hash of, so the self-entry's sha256 is
// the placeholder-version hash by construction, not a re-hash of the
// rewritten document. The sha256 field never changes width (64 hex
// chars, placeholder or real), so only the bytes field can still
// perturb the document's length once rewritten; that is resolved by
// re-serializing with each iteration's measured length until the
// length is stable, capped at 3 passes.
func BuildBundleManifest(
	otherArtifacts []ManifestArtifact,
	self SelfEntrySpec,
	gen Generator,
	runID, createdAt string,
	links ManifestLinks,
	caps ManifestCapabilities,
	completeness Completeness,
) ([]byte, string, error) {
	selfEntry := ManifestArtifact{
		Role:           string(self.Role),
		Path:           self.Path,
		ContentType:    self.ContentType,
		Bytes:          0,
		SHA256:         placeholderSHA256,
		Interpretation: ManifestInterpretation{Mode: "role_only"},
	}

	serialize := func() ([]byte, error) {
		artifacts := append(append([]ManifestArtifact{}, otherArtifacts...), selfEntry)
		SortArtifactsByRole(artifacts)

		manifest := BundleManifest{
			Kind:         "repolens.bundle.manifest",
			Version:      "v1",
			RunID:        runID,
			CreatedAt:    createdAt,
			Generator:    gen,
			Artifacts:    artifacts,
			Links:        links,
			Capabilities: caps,
			Completeness: completeness,
		}

		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, lenserr.New(lenserr.KindSchemaViolation, "failed to serialize bundle manifest", err)
		}
		return data, nil
	}

	placeholderData, err := serialize()
	if err != nil {
		return nil, "", err
	}
	sum := hashutil.HashBytes(placeholderData)
	selfEntry.SHA256 = sum
	selfEntry.Bytes = int64(len(placeholderData))

	var data []byte
	for i := 0; i < 3; i++ {
		data, err = serialize()
		if err != nil {
			return nil, "", err
		}
		size := int64(len(data))
		if size == selfEntry.Bytes {
			return data, sum, nil
		}
		selfEntry.Bytes = size
	}

	return nil, "", lenserr.New(lenserr.KindSchemaViolation, "bundle manifest byte count did not stabilize within 3 iterations", nil)
}

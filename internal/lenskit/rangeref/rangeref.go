// Package rangeref resolves a RangeRef against a manifest to extract
// exact bytes and verify their content hash.
package rangeref

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
	"github.com/heimgewebe/lenskit/internal/lenskit/schemas"
)

// RangeRef identifies a byte range within one named artifact.
type RangeRef struct {
	ArtifactRole  string `json:"artifact_role"`
	FilePath      string `json:"file_path,omitempty"`
	StartByte     int64  `json:"start_byte"`
	EndByte       int64  `json:"end_byte"`
	StartLine     int    `json:"start_line,omitempty"`
	EndLine       int    `json:"end_line,omitempty"`
	ContentSHA256 string `json:"content_sha256,omitempty"`
}

// Provenance names the run and artifact a resolved range came from.
type Provenance struct {
	RunID        string `json:"run_id"`
	ArtifactRole string `json:"artifact_role"`
	ConfigSHA256 string `json:"config_sha256,omitempty"`
}

// Resolved is the result of resolving a RangeRef.
type Resolved struct {
	Text       string     `json:"text"`
	SHA256     string     `json:"sha256"`
	Bytes      int        `json:"bytes"`
	Lines      [2]int     `json:"lines"`
	Provenance Provenance `json:"provenance"`
}

type bundleManifestShape struct {
	Kind      string `json:"kind"`
	RunID     string `json:"run_id"`
	Artifacts []struct {
		Role string `json:"role"`
		Path string `json:"path"`
	} `json:"artifacts"`
	Generator struct {
		ConfigSHA256 string `json:"config_sha256"`
	} `json:"generator"`
}

type dumpIndexShape struct {
	Contract  string `json:"contract"`
	RunID     string `json:"run_id"`
	Artifacts map[string]struct {
		Role string `json:"role"`
		Path string `json:"path"`
	} `json:"artifacts"`
}

// Resolve runs the seven-step resolution algorithm: schema-validate the
// ref, load the manifest (bundle-manifest or dump-index shape), resolve
// the artifact role to an on-disk path, check any file_path the caller
// supplied matches, bounds-check the byte range, read and hash it, and
// decode it as UTF-8.
func Resolve(manifestPath string, ref RangeRef) (*Resolved, error) {
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return nil, lenserr.New(lenserr.KindSchemaViolation, "failed to serialize range_ref for validation", err)
	}
	var refInstance any
	if err := json.Unmarshal(refJSON, &refInstance); err != nil {
		return nil, lenserr.New(lenserr.KindSchemaViolation, "failed to decode range_ref for validation", err)
	}
	if err := schemas.Validate(string(contracts.SchemaRangeRefV1), refInstance); err != nil {
		return nil, lenserr.SchemaViolation(string(contracts.SchemaRangeRefV1), err)
	}

	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, lenserr.IOError("read", manifestPath, err)
	}

	targetPath, runID, configSHA256, err := resolveArtifactPath(manifestData, ref.ArtifactRole)
	if err != nil {
		return nil, err
	}

	if ref.FilePath != "" && ref.FilePath != targetPath {
		return nil, lenserr.New(lenserr.KindSchemaViolation,
			fmt.Sprintf("file_path mismatch: ref=%s manifest=%s", ref.FilePath, targetPath), nil)
	}

	absTarget := filepath.Join(filepath.Dir(manifestPath), targetPath)
	info, err := os.Stat(absTarget)
	if err != nil {
		return nil, lenserr.IOError("stat", absTarget, err)
	}
	fileSize := info.Size()

	if ref.StartByte < 0 || ref.EndByte > fileSize || ref.StartByte > ref.EndByte {
		return nil, lenserr.OutOfBounds(ref.ArtifactRole, int(ref.StartByte), int(ref.EndByte), int(fileSize))
	}

	f, err := os.Open(absTarget)
	if err != nil {
		return nil, lenserr.IOError("open", absTarget, err)
	}
	defer f.Close()

	buf := make([]byte, ref.EndByte-ref.StartByte)
	if _, err := f.ReadAt(buf, ref.StartByte); err != nil {
		return nil, lenserr.IOError("read range from", absTarget, err)
	}

	sum := sha256.Sum256(buf)
	actualSHA256 := hex.EncodeToString(sum[:])
	if ref.ContentSHA256 != "" && ref.ContentSHA256 != actualSHA256 {
		return nil, lenserr.HashMismatch(absTarget)
	}

	if !utf8.Valid(buf) {
		return nil, lenserr.DecodingError(absTarget, nil)
	}

	startLine, endLine := -1, -1
	if ref.StartLine != 0 || ref.EndLine != 0 {
		startLine, endLine = ref.StartLine, ref.EndLine
	}

	return &Resolved{
		Text:   string(buf),
		SHA256: actualSHA256,
		Bytes:  len(buf),
		Lines:  [2]int{startLine, endLine},
		Provenance: Provenance{
			RunID:        runID,
			ArtifactRole: ref.ArtifactRole,
			ConfigSHA256: configSHA256,
		},
	}, nil
}

// resolveArtifactPath accepts either a bundle-manifest or a dump-index
// document and resolves the requested role to its on-disk relative path.
func resolveArtifactPath(manifestData []byte, role string) (path, runID, configSHA256 string, err error) {
	var probe struct {
		Kind     string `json:"kind"`
		Contract string `json:"contract"`
	}
	if err := json.Unmarshal(manifestData, &probe); err != nil {
		return "", "", "", lenserr.New(lenserr.KindSchemaViolation, "manifest is not valid JSON", err)
	}

	switch {
	case probe.Kind == "repolens.bundle.manifest":
		var manifest bundleManifestShape
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			return "", "", "", lenserr.New(lenserr.KindSchemaViolation, "failed to decode bundle manifest", err)
		}
		for _, a := range manifest.Artifacts {
			if a.Role == role {
				return a.Path, manifest.RunID, manifest.Generator.ConfigSHA256, nil
			}
		}
		return "", "", "", lenserr.New(lenserr.KindSchemaViolation,
			fmt.Sprintf("artifact with role %q not found in manifest", role), nil)

	case probe.Contract == "dump-index":
		var manifest dumpIndexShape
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			return "", "", "", lenserr.New(lenserr.KindSchemaViolation, "failed to decode dump-index", err)
		}
		if entry, ok := manifest.Artifacts[role]; ok {
			return entry.Path, manifest.RunID, "", nil
		}
		for _, entry := range manifest.Artifacts {
			if entry.Role == role {
				return entry.Path, manifest.RunID, "", nil
			}
		}
		return "", "", "", lenserr.New(lenserr.KindSchemaViolation,
			fmt.Sprintf("artifact with role %q not found in dump-index", role), nil)

	default:
		return "", "", "", lenserr.New(lenserr.KindSchemaViolation,
			"unsupported manifest format (must be bundle.manifest or dump-index)", nil)
	}
}

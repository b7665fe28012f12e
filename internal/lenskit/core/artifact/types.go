// Package artifact emits the sidecar JSON, chunk JSONL stream,
// dump-index, and self-referential bundle manifest that together
// describe one pipeline run's output set.
package artifact

import (
	"sort"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/contracts"
)

// ChunkRecord is one line of the chunk JSONL stream: canonical field
// names plus the legacy aliases emitted alongside them for consumer
// compatibility.
type ChunkRecord struct {
	ChunkID   string   `json:"chunk_id"`
	FileID    string   `json:"file_id"`
	Path      string   `json:"path,omitempty"`
	StartByte int      `json:"start_byte"`
	EndByte   int      `json:"end_byte"`
	StartLine int      `json:"start_line"`
	EndLine   int       `json:"end_line"`
	SHA256    string   `json:"sha256"`
	SizeBytes int      `json:"size_bytes"`
	Language  string   `json:"language,omitempty"`
	Section   string   `json:"section,omitempty"`
	Layer     string   `json:"layer,omitempty"`
	ArtifactType string `json:"artifact_type,omitempty"`
	Concepts  []string `json:"concepts,omitempty"`
	Content   string   `json:"content"`

	// Legacy aliases, duplicating the canonical fields above.
	ByteOffsetStart int    `json:"byte_offset_start"`
	LineStart       int    `json:"line_start"`
	ContentSHA256   string `json:"content_sha256"`
}

// SidecarFile is one entry of the sidecar's files[] array.
type SidecarFile struct {
	ID               string   `json:"id"`
	Path             string   `json:"path"`
	SHA256           string   `json:"sha256"`
	SizeBytes        int64    `json:"size_bytes"`
	Language         string   `json:"language,omitempty"`
	EstimatedTokens  int      `json:"estimated_tokens"`
	TopLevelSymbols  []string `json:"top_level_symbols,omitempty"`
}

// Generator identifies the tool that produced a run's artifacts.
type Generator struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Platform      string `json:"platform,omitempty"`
	ConfigSHA256  string `json:"config_sha256"`
}

// ReadingPolicy names which artifact is canonical for content reading
// versus which are navigation-only.
type ReadingPolicy struct {
	CanonicalContentArtifact string   `json:"canonical_content_artifact"`
	NavigationArtifacts      []string `json:"navigation_artifacts"`
}

// SidecarArtifacts records the basenames of sibling artifacts.
type SidecarArtifacts struct {
	ChunkIndexBasename string   `json:"chunk_index_basename"`
	MDPartsBasenames   []string `json:"md_parts_basenames"`
}

// SidecarMeta is the sidecar's meta block.
type SidecarMeta struct {
	Contract            string            `json:"contract"`
	ContractVersion      string            `json:"contract_version"`
	Profile             string            `json:"profile,omitempty"`
	TotalFiles          int               `json:"total_files"`
	Features            []string          `json:"features"`
	Generator           Generator         `json:"generator"`
	ChunkIndexContract  string            `json:"chunk_index_contract,omitempty"`
	DumpIndexContract   string            `json:"dump_index_contract"`
	SchemaIDs           map[string]string `json:"schema_ids"`
	ReadingPolicy       ReadingPolicy     `json:"reading_policy"`
	OutputMode          string            `json:"output_mode"`
	IncludeHidden       bool              `json:"include_hidden"`
	RedactSecrets       bool              `json:"redact_secrets"`
	SplitSizeBytes      int               `json:"split_size_bytes"`
	MaxBytes            int64             `json:"max_bytes"`
	SourceRepos         []string          `json:"source_repos"`
}

// Sidecar is the repolens-agent contract document.
type Sidecar struct {
	Meta      SidecarMeta       `json:"meta"`
	Files     []SidecarFile     `json:"files"`
	Artifacts SidecarArtifacts  `json:"artifacts"`
}

// DumpIndexEntry is one role's entry in the dump-index artifact map.
type DumpIndexEntry struct {
	Path        string `json:"path"`
	SHA256      string `json:"sha256"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"content_type"`
	Role        string `json:"role"`
}

// DumpIndex is the dump-index.v1 contract document.
type DumpIndex struct {
	Contract string                    `json:"contract"`
	RunID    string                    `json:"run_id"`
	Artifacts map[string]DumpIndexEntry `json:"artifacts"`
}

// ManifestInterpretation discriminates a manifest artifact entry as
// plain role metadata vs. one that also carries a contract payload.
type ManifestInterpretation struct {
	Mode string `json:"mode"` // "role_only" | "contract"
}

// ManifestArtifact is one entry of BundleManifest.Artifacts.
type ManifestArtifact struct {
	Role            string                  `json:"role"`
	Path            string                  `json:"path"`
	ContentType     string                  `json:"content_type"`
	Bytes           int64                   `json:"bytes"`
	SHA256          string                  `json:"sha256"`
	Interpretation  ManifestInterpretation  `json:"interpretation"`
	Contract        string                  `json:"contract,omitempty"`
}

// ManifestLinks cross-references the dump-index for verification.
type ManifestLinks struct {
	CanonicalDumpIndexSHA256 string `json:"canonical_dump_index_sha256"`
}

// ManifestCapabilities records what the index build was able to use.
type ManifestCapabilities struct {
	FTS5BM25 bool `json:"fts5_bm25"`
}

// Completeness records which of the manifest's parts were actually
// emitted and which one a reader should treat as primary, so a
// verifier can confirm a run produced everything it claims to.
type Completeness struct {
	IsComplete    bool     `json:"is_complete"`
	Policy        string   `json:"policy"`
	Parts         []string `json:"parts"`
	PrimaryPart   string   `json:"primary_part"`
	ExpectedBytes int64    `json:"expected_bytes"`
	EmittedBytes  int64    `json:"emitted_bytes"`
}

// BundleManifest is the self-referential repolens.bundle.manifest
// document; its own artifact entry (role RoleDerivedManifestJSON) is
// computed via the fix-point algorithm in fixpoint.go.
type BundleManifest struct {
	Kind         string               `json:"kind"`
	Version      string               `json:"version"`
	RunID        string               `json:"run_id"`
	CreatedAt    string               `json:"created_at"`
	Generator    Generator            `json:"generator"`
	Artifacts    []ManifestArtifact   `json:"artifacts"`
	Links        ManifestLinks        `json:"links"`
	Capabilities ManifestCapabilities `json:"capabilities"`
	Completeness Completeness         `json:"completeness"`
}

// ChunkRecordFrom constructs a ChunkRecord with both canonical and
// legacy alias fields populated from a single set of values. content
// is the chunk's own text, sliced by the caller from the source file
// using StartByte/EndByte — it is what index/build.go ingests into the
// chunks_fts.content column.
func ChunkRecordFrom(chunkID, fileID, path string, startByte, endByte, startLine, endLine int, sha256 string, sizeBytes int, language, section, layer, artifactType string, concepts []string, content string) ChunkRecord {
	return ChunkRecord{
		ChunkID: chunkID, FileID: fileID, Path: path,
		StartByte: startByte, EndByte: endByte,
		StartLine: startLine, EndLine: endLine,
		SHA256: sha256, SizeBytes: sizeBytes,
		Language: language, Section: section, Layer: layer, ArtifactType: artifactType,
		Concepts: concepts, Content: content,
		ByteOffsetStart: startByte, LineStart: startLine, ContentSHA256: sha256,
	}
}

// SortArtifactsByRole reorders artifacts in canonical enum order, per
// the manifest artifacts[] ordering guarantee.
func SortArtifactsByRole(artifacts []ManifestArtifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		return contracts.Rank(contracts.ArtifactRole(artifacts[i].Role)) < contracts.Rank(contracts.ArtifactRole(artifacts[j].Role))
	})
}

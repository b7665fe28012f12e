// Package contracts enumerates the closed set of artifact roles and
// schema IDs this system emits, assembled once per run and passed by
// value rather than kept as global state.
package contracts

// ArtifactRole is the closed taxonomy of artifacts the pipeline emits.
type ArtifactRole string

const (
	RoleCanonicalMD         ArtifactRole = "canonical_md"
	RoleIndexSidecarJSON    ArtifactRole = "index_sidecar_json"
	RoleChunkIndexJSONL     ArtifactRole = "chunk_index_jsonl"
	RoleDumpIndexJSON       ArtifactRole = "dump_index_json"
	RoleSQLiteIndex         ArtifactRole = "sqlite_index"
	RoleRetrievalEvalJSON   ArtifactRole = "retrieval_eval_json"
	RoleDerivedManifestJSON ArtifactRole = "derived_manifest_json"
	RolePRDeltaJSON         ArtifactRole = "pr_delta_json"
	RoleArchitectureSummary ArtifactRole = "architecture_summary"
)

// roleOrder is the canonical enum order used to sort manifest artifacts.
var roleOrder = []ArtifactRole{
	RoleCanonicalMD,
	RoleIndexSidecarJSON,
	RoleChunkIndexJSONL,
	RoleDumpIndexJSON,
	RoleSQLiteIndex,
	RoleRetrievalEvalJSON,
	RoleDerivedManifestJSON,
	RolePRDeltaJSON,
	RoleArchitectureSummary,
}

// Valid reports whether s is a known artifact role.
func Valid(s string) bool {
	for _, r := range roleOrder {
		if string(r) == s {
			return true
		}
	}
	return false
}

// Rank returns the canonical sort position of a role; unknown roles sort
// last, stably, after every known role.
func Rank(r ArtifactRole) int {
	for i, candidate := range roleOrder {
		if candidate == r {
			return i
		}
	}
	return len(roleOrder)
}

// DumpIndexAlias maps each role to the canonical alias key used as a
// dump-index lookup key. Some aliases intentionally diverge from the
// role string itself (e.g. "chunk_index" rather than "chunk_index_jsonl")
// to match the long-standing on-disk convention; readers must accept
// either, writers emit only these canonical forms.
var DumpIndexAlias = map[ArtifactRole]string{
	RoleCanonicalMD:         "merge_md",
	RoleIndexSidecarJSON:    "sidecar_json",
	RoleChunkIndexJSONL:     "chunk_index",
	RoleDumpIndexJSON:       "dump_index",
	RoleSQLiteIndex:         "sqlite_index",
	RoleRetrievalEvalJSON:   "retrieval_eval",
	RoleDerivedManifestJSON: "derived_manifest",
	RolePRDeltaJSON:         "pr_delta",
	RoleArchitectureSummary: "architecture_summary",
}

// LegacyDumpIndexAliases lists alternate keys a reader must also accept
// for a given role, per spec's "accept either on read" rule.
var LegacyDumpIndexAliases = map[ArtifactRole][]string{
	RoleChunkIndexJSONL: {"chunk_index_jsonl"},
}

// SchemaID is a stable identifier for one of the wire-format schemas.
type SchemaID string

const (
	SchemaBundleManifestV1     SchemaID = "bundle-manifest.v1"
	SchemaPRSchauDeltaV1       SchemaID = "pr-schau-delta.v1"
	SchemaRangeRefV1           SchemaID = "range-ref.v1"
	SchemaQueryResultV1        SchemaID = "query-result.v1"
	SchemaRetrievalEvalV1      SchemaID = "retrieval-eval.v1"
	SchemaDumpIndexV1          SchemaID = "dump-index.v1"
	SchemaArchitectureSummary1 SchemaID = "architecture-summary.v1"
	SchemaDerivedIndexV1       SchemaID = "derived-index.v1"
	SchemaRepolensAgentV2      SchemaID = "repolens-agent"
)

// Registry enumerates the roles, schema IDs and versions known to a
// given run. It is a plain value — built once at CLI start via
// NewRegistry and threaded through explicitly, never stored globally.
type Registry struct {
	Roles     []ArtifactRole
	SchemaIDs []SchemaID
	Versions  map[SchemaID]string
}

// NewRegistry returns the fixed registry this system defines.
func NewRegistry() Registry {
	versions := map[SchemaID]string{
		SchemaBundleManifestV1:     "v1",
		SchemaPRSchauDeltaV1:       "v1",
		SchemaRangeRefV1:           "v1",
		SchemaQueryResultV1:        "v1",
		SchemaRetrievalEvalV1:      "v1",
		SchemaDumpIndexV1:          "v1",
		SchemaArchitectureSummary1: "v1",
		SchemaDerivedIndexV1:       "v1",
		SchemaRepolensAgentV2:      "v2",
	}
	schemaIDs := make([]SchemaID, 0, len(versions))
	for id := range versions {
		schemaIDs = append(schemaIDs, id)
	}
	roles := make([]ArtifactRole, len(roleOrder))
	copy(roles, roleOrder)

	return Registry{
		Roles:     roles,
		SchemaIDs: schemaIDs,
		Versions:  versions,
	}
}

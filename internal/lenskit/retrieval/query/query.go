// Package query executes BM25 full-text and metadata-only searches
// against a built index, applying structural filters and an optional
// advanced expression filter.
package query

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/index"
)

// Mode names the query execution mode.
type Mode string

const (
	ModeFTS      Mode = "fts"
	ModeMetadata Mode = "metadata"
)

// Engine identifies which ranking engine served a query.
const (
	EngineFTS5         = "fts5"
	EngineFTS5NoBM25   = "fts5_nobm25"
	EngineMetadataOnly = "metadata_only"
)

// Filters holds the five always-applied structural filters.
type Filters struct {
	Repo         string
	Path         string
	Ext          string
	Layer        string
	ArtifactType string
}

// Request is one query invocation.
type Request struct {
	Query   string
	K       int
	Filters Filters
	Where   string // optional expr-lang advanced filter, applied post-SQL
}

// Why explains how a result was ranked.
type Why struct {
	QueryTerms        []string       `json:"query_terms,omitempty"`
	AppliedFilterKeys []string       `json:"applied_filter_keys"`
	RankFeatures      map[string]any `json:"rank_features"`
}

// Result is one row of a ResultSet.
type Result struct {
	ChunkID string  `json:"chunk_id"`
	RepoID  string  `json:"repo_id"`
	Path    string  `json:"path"`
	Range   string  `json:"range"`
	Score   float64 `json:"score"`
	Layer   string  `json:"layer"`
	Type    string  `json:"type"`
	SHA256  string  `json:"sha256"`
	Why     Why     `json:"why"`
}

// ResultSet is the full query-result.v1 response shape.
type ResultSet struct {
	Query          string   `json:"query"`
	K              int      `json:"k"`
	Engine         string   `json:"engine"`
	QueryMode      Mode     `json:"query_mode"`
	AppliedFilters Filters  `json:"applied_filters"`
	Count          int      `json:"count"`
	Results        []Result `json:"results"`
	FTSQuery       string   `json:"fts_query,omitempty"`
}

// Execute runs one query against db per spec's mode selection, capability
// probe, filter composition, and ordering rules.
func Execute(db *sql.DB, req Request) (*ResultSet, error) {
	mode := ModeMetadata
	if strings.TrimSpace(req.Query) != "" {
		mode = ModeFTS
	}

	caps := index.ProbeCapabilities(db)
	if mode == ModeFTS && !caps.FTS5 {
		return nil, lenserr.FTSMissing()
	}

	engine := EngineMetadataOnly
	if mode == ModeFTS {
		if caps.BM25 {
			engine = EngineFTS5
		} else {
			engine = EngineFTS5NoBM25
		}
	}

	var ftsQuery string
	var rows *sql.Rows
	var err error

	whereSQL, args := buildFilterSQL(req.Filters)

	if mode == ModeFTS {
		ftsQuery = cleanQuery(req.Query)
		scoreExpr := "0.0"
		if caps.BM25 {
			scoreExpr = "bm25(chunks_fts)"
		}
		sqlText := fmt.Sprintf(`
			SELECT c.chunk_id, c.repo_id, c.path, c.start_line, c.end_line,
			       c.layer, c.artifact_type, c.content_sha256, %s AS score
			FROM chunks_fts
			JOIN chunks c ON c.chunk_id = chunks_fts.chunk_id
			WHERE chunks_fts MATCH ? %s
			ORDER BY score ASC, c.repo_id ASC, c.path ASC, c.start_line ASC
		`, scoreExpr, whereSQL)
		queryArgs := append([]any{ftsQuery}, args...)
		rows, err = db.Query(sqlText, queryArgs...)
		if err != nil {
			return nil, lenserr.FTSSyntax(ftsQuery, err)
		}
	} else {
		sqlText := fmt.Sprintf(`
			SELECT c.chunk_id, c.repo_id, c.path, c.start_line, c.end_line,
			       c.layer, c.artifact_type, c.content_sha256, 0.0 AS score
			FROM chunks c
			WHERE 1=1 %s
			ORDER BY c.repo_id ASC, c.path ASC, c.start_line ASC
		`, whereSQL)
		rows, err = db.Query(sqlText, args...)
		if err != nil {
			return nil, lenserr.IOError("query", "chunks table", err)
		}
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var startLine, endLine int
		var layer, artifactType sql.NullString
		if err := rows.Scan(&r.ChunkID, &r.RepoID, &r.Path, &startLine, &endLine,
			&layer, &artifactType, &r.SHA256, &r.Score); err != nil {
			return nil, lenserr.IOError("scan", "query result row", err)
		}
		r.Range = fmt.Sprintf("%d-%d", startLine, endLine)
		r.Layer = layer.String
		r.Type = artifactType.String
		r.Why = Why{
			AppliedFilterKeys: appliedFilterKeys(req.Filters),
			RankFeatures:      rankFeatures(engine, r.Score),
		}
		if mode == ModeFTS {
			r.Why.QueryTerms = queryTerms(ftsQuery)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, lenserr.IOError("iterate", "query result rows", err)
	}

	if req.Where != "" {
		results, err = applyWhere(results, req.Where)
		if err != nil {
			return nil, err
		}
	}

	if req.K > 0 && len(results) > req.K {
		results = results[:req.K]
	}

	rs := &ResultSet{
		Query:          req.Query,
		K:              req.K,
		Engine:         engine,
		QueryMode:      mode,
		AppliedFilters: req.Filters,
		Count:          len(results),
		Results:        results,
	}
	if mode == ModeFTS {
		rs.FTSQuery = ftsQuery
	}
	return rs, nil
}

// cleanQuery escapes double-quotes by doubling them; no other
// transformation is applied, leaving FTS5 query syntax otherwise intact.
func cleanQuery(q string) string {
	return strings.ReplaceAll(q, `"`, `""`)
}

func queryTerms(ftsQuery string) []string {
	return strings.Fields(strings.ReplaceAll(ftsQuery, `"`, ""))
}

func appliedFilterKeys(f Filters) []string {
	var keys []string
	if f.Repo != "" {
		keys = append(keys, "repo")
	}
	if f.Path != "" {
		keys = append(keys, "path")
	}
	if f.Ext != "" {
		keys = append(keys, "ext")
	}
	if f.Layer != "" {
		keys = append(keys, "layer")
	}
	if f.ArtifactType != "" {
		keys = append(keys, "artifact_type")
	}
	return keys
}

func rankFeatures(engine string, score float64) map[string]any {
	if engine == EngineMetadataOnly {
		return map[string]any{"metadata": 0}
	}
	return map[string]any{"bm25": score}
}

// buildFilterSQL composes the five structural filters into a SQL WHERE
// fragment (prefixed with AND) plus its bound arguments. ext matches a
// normalized path suffix with or without a leading dot; path is a
// case-insensitive substring; repo/layer/artifact_type are equality.
func buildFilterSQL(f Filters) (string, []any) {
	var clauses []string
	var args []any

	if f.Repo != "" {
		clauses = append(clauses, "c.repo_id = ?")
		args = append(args, f.Repo)
	}
	if f.Path != "" {
		clauses = append(clauses, "LOWER(c.path) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Path)+"%")
	}
	if f.Ext != "" {
		ext := f.Ext
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		clauses = append(clauses, "c.path LIKE ?")
		args = append(args, "%"+ext)
	}
	if f.Layer != "" {
		clauses = append(clauses, "c.layer = ?")
		args = append(args, f.Layer)
	}
	if f.ArtifactType != "" {
		clauses = append(clauses, "c.artifact_type = ?")
		args = append(args, f.ArtifactType)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	// The FTS branch's WHERE already carries "WHERE chunks_fts MATCH ?";
	// the metadata branch's already carries "WHERE 1=1". Both accept a
	// trailing "AND ..." fragment, so the prefix here is always AND.
	return "AND " + strings.Join(clauses, " AND "), args
}

// applyWhere evaluates an expr-lang expression against each result's
// fields, narrowing the already structurally-filtered set. This never
// touches the SQL plan or BM25 ranking; it is a pure post-filter.
func applyWhere(results []Result, whereExpr string) ([]Result, error) {
	program, err := expr.Compile(whereExpr, expr.Env(whereEnv{}), expr.AsBool())
	if err != nil {
		return nil, lenserr.ConfigInvalid("--where", err)
	}

	var filtered []Result
	for _, r := range results {
		env := whereEnv{
			RepoID: r.RepoID,
			Path:   r.Path,
			Layer:  r.Layer,
			Type:   r.Type,
			Score:  r.Score,
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, lenserr.ConfigInvalid("--where", err)
		}
		if keep, ok := out.(bool); ok && keep {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// whereEnv is the expr-lang evaluation environment for --where.
type whereEnv struct {
	RepoID string
	Path   string
	Layer  string
	Type   string
	Score  float64
}

// ParseK parses a k argument, defaulting to 10 on empty input.
func ParseK(s string) (int, error) {
	if s == "" {
		return 10, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil || k <= 0 {
		return 0, lenserr.ConfigInvalid("k", err)
	}
	return k, nil
}

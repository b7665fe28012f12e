// Package index builds and verifies the SQLite-backed full-text and
// metadata index from the chunk JSONL stream and sidecar.
package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	repo_id TEXT NOT NULL,
	path TEXT NOT NULL,
	path_norm TEXT NOT NULL,
	layer TEXT,
	artifact_type TEXT,
	start_byte INTEGER NOT NULL,
	end_byte INTEGER NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	content_sha256 TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	language TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunks_repo_id ON chunks(repo_id);
CREATE INDEX IF NOT EXISTS idx_chunks_path_norm ON chunks(path_norm);
CREATE INDEX IF NOT EXISTS idx_chunks_layer ON chunks(layer);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	chunk_id UNINDEXED,
	content,
	path_tokens,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS files (
	file_id TEXT PRIMARY KEY,
	repo_id TEXT NOT NULL,
	path TEXT NOT NULL,
	file_sha256 TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	language TEXT
);

CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

// pathTokens replaces path separators and word-boundary punctuation
// with spaces so FTS5 can match on individual path components.
func pathTokens(pathNorm string) string {
	repl := strings.NewReplacer("/", " ", ".", " ", "_", " ", "-", " ")
	return repl.Replace(pathNorm)
}

// createSchema applies schemaDDL, returning an engine_missing-shaped
// error if the linked sqlite build lacks FTS5 support.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_probe USING fts5(x)`); err != nil {
		return fmt.Errorf("fts5 extension unavailable: %w", err)
	}
	db.Exec(`DROP TABLE IF EXISTS _fts5_probe`)

	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("failed to create index schema: %w", err)
	}
	return nil
}

// HasBM25 reports whether the linked build's FTS5 module provides the
// bm25() ranking function. bm25() is only callable inside a query that
// performs a MATCH against the table, so the probe uses a MATCH term
// engineered to match nothing, never touching real rows.
func HasBM25(db *sql.DB) bool {
	rows, err := db.Query(`SELECT bm25(chunks_fts) FROM chunks_fts WHERE chunks_fts MATCH '"__lenskit_bm25_probe_term__"'`)
	if err != nil {
		return false
	}
	defer rows.Close()
	return true
}

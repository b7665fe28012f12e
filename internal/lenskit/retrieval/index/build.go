package index

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"
)

const batchSize = 500

// IngestStats mirrors the index_meta ingest.* counters.
type IngestStats struct {
	TotalLines          int
	EmptyLines          int
	InvalidJSONLines    int
	MissingChunkIDLines int
	IngestedChunksCount int
}

// BuildOptions configures one index build run.
type BuildOptions struct {
	DBPath           string
	ChunkJSONLPath   string
	RepoID           string
	RunID            string
	DumpSHA256       string
	ChunkIndexSHA256 string
	ConfigJSON       string
}

// SidecarFileRow is the minimal shape read from the sidecar to populate
// the files table.
type SidecarFileRow struct {
	FileID    string
	Path      string
	SHA256    string
	SizeBytes int64
	Language  string
}

// Build constructs a fresh index at opts.DBPath from the chunk JSONL
// stream and sidecar file rows. Rebuilding is idempotent: an existing
// destination is deleted first. The destination is locked exclusively
// for the duration of the build.
func Build(opts BuildOptions, files []SidecarFileRow) (*IngestStats, error) {
	lock := flock.New(opts.DBPath + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	defer lock.Unlock()

	os.Remove(opts.DBPath)

	db, err := sql.Open("sqlite", opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	defer db.Close()

	if err := createSchema(db); err != nil {
		os.Remove(opts.DBPath)
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin index transaction: %w", err)
	}

	stats, err := ingestChunks(tx, opts.RepoID, opts.ChunkJSONLPath)
	if err != nil {
		tx.Rollback()
		os.Remove(opts.DBPath)
		return nil, err
	}

	if err := insertFiles(tx, opts.RepoID, files); err != nil {
		tx.Rollback()
		os.Remove(opts.DBPath)
		return nil, err
	}

	if err := writeMeta(tx, opts, stats); err != nil {
		tx.Rollback()
		os.Remove(opts.DBPath)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		os.Remove(opts.DBPath)
		return nil, fmt.Errorf("failed to commit index transaction: %w", err)
	}

	if stats.InvalidJSONLines > 0 || stats.MissingChunkIDLines > 0 {
		fmt.Fprintf(os.Stderr, "warning: index build skipped %d invalid and %d chunk_id-missing lines\n",
			stats.InvalidJSONLines, stats.MissingChunkIDLines)
	}

	return stats, nil
}

func ingestChunks(tx *sql.Tx, repoID, path string) (*IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk stream: %w", err)
	}
	defer f.Close()

	stats := &IngestStats{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	insertChunk, err := tx.Prepare(`INSERT OR REPLACE INTO chunks
		(chunk_id, repo_id, path, path_norm, layer, artifact_type, start_byte, end_byte, start_line, end_line, content_sha256, size_bytes, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer insertChunk.Close()

	insertFTS, err := tx.Prepare(`INSERT INTO chunks_fts (chunk_id, content, path_tokens) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare fts insert: %w", err)
	}
	defer insertFTS.Close()

	pending := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		stats.TotalLines++
		if len(line) == 0 {
			stats.EmptyLines++
			continue
		}
		if !gjson.ValidBytes(line) {
			stats.InvalidJSONLines++
			continue
		}

		chunkID := gjson.GetBytes(line, "chunk_id").String()
		if chunkID == "" {
			stats.MissingChunkIDLines++
			continue
		}

		path := firstNonEmptyJSON(line, "path")
		pathNorm := strings.TrimPrefix(path, "/")
		layer := firstNonEmptyJSON(line, "layer")
		artifactType := firstNonEmptyJSON(line, "artifact_type")
		startByte := firstPresentInt(line, "start_byte", "byte_offset_start")
		endByte := gjson.GetBytes(line, "end_byte").Int()
		startLine := firstPresentInt(line, "start_line", "line_start")
		endLine := gjson.GetBytes(line, "end_line").Int()
		contentSHA := firstNonEmptyJSON(line, "sha256", "content_sha256")
		sizeBytes := gjson.GetBytes(line, "size_bytes").Int()
		language := firstNonEmptyJSON(line, "language")
		content := gjson.GetBytes(line, "content").String()

		if _, err := insertChunk.Exec(chunkID, repoID, path, pathNorm, layer, artifactType,
			startByte, endByte, startLine, endLine, contentSHA, sizeBytes, language); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %s: %w", chunkID, err)
		}
		if _, err := insertFTS.Exec(chunkID, content, pathTokens(pathNorm)); err != nil {
			return nil, fmt.Errorf("failed to insert fts row for %s: %w", chunkID, err)
		}

		stats.IngestedChunksCount++
		pending++
		if pending >= batchSize {
			pending = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading chunk stream: %w", err)
	}

	return stats, nil
}

func firstNonEmptyJSON(line []byte, keys ...string) string {
	for _, k := range keys {
		if v := gjson.GetBytes(line, k).String(); v != "" {
			return v
		}
	}
	return ""
}

// firstPresentInt returns the integer value of the first key that
// actually exists in the line, so canonical and legacy field names
// (e.g. start_byte vs byte_offset_start) are both accepted.
func firstPresentInt(line []byte, keys ...string) int64 {
	for _, k := range keys {
		if r := gjson.GetBytes(line, k); r.Exists() {
			return r.Int()
		}
	}
	return 0
}

func insertFiles(tx *sql.Tx, repoID string, files []SidecarFileRow) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO files (file_id, repo_id, path, file_sha256, size_bytes, language) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare files insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(f.FileID, repoID, f.Path, f.SHA256, f.SizeBytes, f.Language); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.Path, err)
		}
	}
	return nil
}

func writeMeta(tx *sql.Tx, opts BuildOptions, stats *IngestStats) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare meta insert: %w", err)
	}
	defer stmt.Close()

	entries := map[string]string{
		"schema_version":                "1",
		"dump_sha256":                   opts.DumpSHA256,
		"chunk_index_sha256":            opts.ChunkIndexSHA256,
		"created_at":                    time.Now().UTC().Format(time.RFC3339),
		"run_id":                        opts.RunID,
		"config_json":                   opts.ConfigJSON,
		"ingest.total_lines":            fmt.Sprint(stats.TotalLines),
		"ingest.empty_lines":            fmt.Sprint(stats.EmptyLines),
		"ingest.invalid_json_lines":     fmt.Sprint(stats.InvalidJSONLines),
		"ingest.missing_chunk_id_lines": fmt.Sprint(stats.MissingChunkIDLines),
		"ingest.ingested_chunks_count":  fmt.Sprint(stats.IngestedChunksCount),
	}

	for k, v := range entries {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("failed to write index_meta %s: %w", k, err)
		}
	}
	return nil
}

// Capabilities reports what feature set a built index supports.
type Capabilities struct {
	FTS5 bool
	BM25 bool
}

// ProbeCapabilities opens db read-only and determines FTS5/BM25
// availability using the always-false predicate pattern.
func ProbeCapabilities(db *sql.DB) Capabilities {
	var fts5 bool
	row := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`)
	var count int
	if err := row.Scan(&count); err == nil && count > 0 {
		fts5 = true
	}
	return Capabilities{FTS5: fts5, BM25: fts5 && HasBM25(db)}
}

package index

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func writeChunkStream(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildIngestsValidChunksAndSkipsBad(t *testing.T) {
	lines := []string{
		`{"chunk_id":"c1","path":"a.go","start_byte":0,"end_byte":10,"start_line":1,"end_line":2,"sha256":"` + strings64('a') + `","size_bytes":10,"content":"package a"}`,
		``,
		`not json`,
		`{"path":"b.go","start_byte":0,"end_byte":5,"start_line":1,"end_line":1,"sha256":"` + strings64('b') + `","size_bytes":5,"content":"x"}`,
		`{"chunk_id":"c2","path":"b.go","start_byte":0,"end_byte":5,"start_line":1,"end_line":1,"sha256":"` + strings64('b') + `","size_bytes":5,"content":"package b"}`,
	}
	chunkPath := writeChunkStream(t, lines)

	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	opts := BuildOptions{
		DBPath:           dbPath,
		ChunkJSONLPath:   chunkPath,
		RepoID:           "repo1",
		RunID:            "run1",
		DumpSHA256:       strings64('d'),
		ChunkIndexSHA256: strings64('e'),
		ConfigJSON:       "{}",
	}

	stats, err := Build(opts, []SidecarFileRow{
		{FileID: "FILE:f_1", Path: "a.go", SHA256: strings64('a'), SizeBytes: 10, Language: "go"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if stats.IngestedChunksCount != 2 {
		t.Fatalf("expected 2 ingested chunks, got %d", stats.IngestedChunksCount)
	}
	if stats.EmptyLines != 1 {
		t.Fatalf("expected 1 empty line, got %d", stats.EmptyLines)
	}
	if stats.InvalidJSONLines != 1 {
		t.Fatalf("expected 1 invalid json line, got %d", stats.InvalidJSONLines)
	}
	if stats.MissingChunkIDLines != 1 {
		t.Fatalf("expected 1 missing chunk_id line, got %d", stats.MissingChunkIDLines)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows in chunks table, got %d", count)
	}

	var ftsCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chunks_fts WHERE chunks_fts MATCH 'package'`).Scan(&ftsCount); err != nil {
		t.Fatal(err)
	}
	if ftsCount != 2 {
		t.Fatalf("expected 2 fts matches for 'package', got %d", ftsCount)
	}

	var fileCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&fileCount); err != nil {
		t.Fatal(err)
	}
	if fileCount != 1 {
		t.Fatalf("expected 1 file row, got %d", fileCount)
	}

	var dumpSHA string
	if err := db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dump_sha256'`).Scan(&dumpSHA); err != nil {
		t.Fatal(err)
	}
	if dumpSHA != strings64('d') {
		t.Fatalf("expected recorded dump_sha256 to match, got %s", dumpSHA)
	}
}

func TestBuildIsIdempotentAcrossRebuild(t *testing.T) {
	chunkPath := writeChunkStream(t, []string{
		`{"chunk_id":"c1","path":"a.go","start_byte":0,"end_byte":10,"start_line":1,"end_line":2,"sha256":"` + strings64('a') + `","size_bytes":10,"content":"package a"}`,
	})
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	opts := BuildOptions{DBPath: dbPath, ChunkJSONLPath: chunkPath, RepoID: "repo1", RunID: "run1"}

	if _, err := Build(opts, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Build(opts, nil); err != nil {
		t.Fatalf("rebuild should succeed cleanly, got %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected rebuild to not duplicate rows, got %d", count)
	}
}

func TestProbeCapabilitiesReportsFTS5AndBM25(t *testing.T) {
	chunkPath := writeChunkStream(t, []string{
		`{"chunk_id":"c1","path":"a.go","start_byte":0,"end_byte":10,"start_line":1,"end_line":2,"sha256":"` + strings64('a') + `","size_bytes":10,"content":"hello"}`,
	})
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	if _, err := Build(BuildOptions{DBPath: dbPath, ChunkJSONLPath: chunkPath, RepoID: "r"}, nil); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	caps := ProbeCapabilities(db)
	if !caps.FTS5 {
		t.Fatal("expected fts5 table to be detected")
	}
}

func strings64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

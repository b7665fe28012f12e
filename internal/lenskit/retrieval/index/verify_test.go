package index

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
)

func TestVerifyIndexDetectsDriftedDump(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkStream(t, []string{
		`{"chunk_id":"c1","path":"a.go","start_byte":0,"end_byte":10,"start_line":1,"end_line":2,"sha256":"` + strings64('a') + `","size_bytes":10,"content":"package a"}`,
	})
	dumpPath := filepath.Join(dir, "dump.md")
	if err := os.WriteFile(dumpPath, []byte("original contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	dumpSHA, _, status := hashutil.HashFile(dumpPath)
	if status != hashutil.StatusOK {
		t.Fatalf("failed to hash dump: %s", status)
	}
	chunkSHA, _, status := hashutil.HashFile(chunkPath)
	if status != hashutil.StatusOK {
		t.Fatalf("failed to hash chunk stream: %s", status)
	}

	dbPath := filepath.Join(dir, "index.sqlite")
	opts := BuildOptions{
		DBPath:           dbPath,
		ChunkJSONLPath:   chunkPath,
		RepoID:           "repo1",
		DumpSHA256:       dumpSHA,
		ChunkIndexSHA256: chunkSHA,
	}
	if _, err := Build(opts, nil); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	res, err := VerifyIndex(db, dumpPath, chunkPath)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Fatal("expected freshly built index to verify OK")
	}

	if err := os.WriteFile(dumpPath, []byte("changed contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err = VerifyIndex(db, dumpPath, chunkPath)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Fatal("expected drifted dump to fail verification")
	}
	if res.DumpSHA256Match {
		t.Fatal("expected dump sha256 mismatch to be flagged")
	}
	if !res.ChunkSHA256Match {
		t.Fatal("expected chunk stream sha256 to still match")
	}
}

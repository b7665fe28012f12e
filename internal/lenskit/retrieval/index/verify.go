package index

import (
	"database/sql"
	"fmt"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
)

// VerifyResult reports whether a built index's recorded provenance still
// matches the inputs it was built from.
type VerifyResult struct {
	OK                  bool
	DumpSHA256Match     bool
	ChunkSHA256Match    bool
	RecordedDumpSHA256  string
	ActualDumpSHA256    string
	RecordedChunkSHA256 string
	ActualChunkSHA256   string
}

// VerifyIndex recomputes the sha256 of the dump and chunk-stream files
// currently on disk and compares them against the provenance recorded
// in index_meta at build time. An index is stale whenever either
// differs, regardless of which direction it drifted.
func VerifyIndex(db *sql.DB, dumpPath, chunkJSONLPath string) (*VerifyResult, error) {
	recordedDump, err := readMeta(db, "dump_sha256")
	if err != nil {
		return nil, err
	}
	recordedChunk, err := readMeta(db, "chunk_index_sha256")
	if err != nil {
		return nil, err
	}

	actualDump, _, status := hashutil.HashFile(dumpPath)
	if status != hashutil.StatusOK {
		return nil, fmt.Errorf("failed to hash dump for verification: %s", status)
	}
	actualChunk, _, status := hashutil.HashFile(chunkJSONLPath)
	if status != hashutil.StatusOK {
		return nil, fmt.Errorf("failed to hash chunk stream for verification: %s", status)
	}

	res := &VerifyResult{
		RecordedDumpSHA256:  recordedDump,
		ActualDumpSHA256:    actualDump,
		RecordedChunkSHA256: recordedChunk,
		ActualChunkSHA256:   actualChunk,
		DumpSHA256Match:     recordedDump == actualDump,
		ChunkSHA256Match:    recordedChunk == actualChunk,
	}
	res.OK = res.DumpSHA256Match && res.ChunkSHA256Match
	return res, nil
}

func readMeta(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to read index_meta[%s]: %w", key, err)
	}
	return value, nil
}

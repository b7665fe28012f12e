package artifact

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/lenserr"
)

// EmitChunkJSONL serializes chunk records as newline-delimited JSON,
// one record per line, ordered by (path, start_byte) as the ordering
// guarantee requires.
func EmitChunkJSONL(records []ChunkRecord) ([]byte, error) {
	sorted := append([]ChunkRecord{}, records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].StartByte < sorted[j].StartByte
	})

	var buf bytes.Buffer
	for _, r := range sorted {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, lenserr.New(lenserr.KindSchemaViolation, "failed to serialize chunk record", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// EmitSidecar serializes a Sidecar document, with files[] ordered by
// path as required.
func EmitSidecar(s Sidecar) ([]byte, error) {
	sort.SliceStable(s.Files, func(i, j int) bool { return s.Files[i].Path < s.Files[j].Path })
	return json.MarshalIndent(s, "", "  ")
}

// EmitDumpIndex serializes a DumpIndex document, validating that every
// entry's SHA256 is a well-formed 64-hex digest and never the "ERROR"
// sentinel the original implementation could otherwise carry forward.
func EmitDumpIndex(d DumpIndex) ([]byte, error) {
	for alias, entry := range d.Artifacts {
		if !hashutil.IsValidHex64(entry.SHA256) {
			return nil, lenserr.New(lenserr.KindSchemaViolation,
				"dump-index entry "+alias+" has an invalid sha256", nil)
		}
	}
	return json.MarshalIndent(d, "", "  ")
}

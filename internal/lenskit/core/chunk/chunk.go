// Package chunk splits file content into line-preserving, size-bounded
// chunks with deterministic identifiers.
package chunk

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
)

// Params bounds chunk size. MinSize and MinLines are accepted for
// forward compatibility with future heuristics but do not currently
// affect the greedy-fill algorithm.
type Params struct {
	MinSize  int
	MaxSize  int
	MinLines int
	MaxLines int
}

// DefaultParams matches the long-standing defaults of 2048/8192/200/400.
func DefaultParams() Params {
	return Params{MinSize: 2048, MaxSize: 8192, MinLines: 200, MaxLines: 400}
}

// Chunk is one contiguous, line-aligned slice of a file's content.
type Chunk struct {
	ChunkID       string `json:"chunk_id"`
	FileID        string `json:"file_id"`
	StartByte     int    `json:"start_byte"`
	EndByte       int    `json:"end_byte"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
	ContentSHA256 string `json:"sha256"`
	SizeBytes     int    `json:"size_bytes"`
	Symbols       []string `json:"symbols,omitempty"`
}

// splitKeepEnds splits s into lines, each retaining its trailing
// newline (including the final line if it has none, which is kept as
// a line with no terminator). Mirrors Python's str.splitlines(keepends=True)
// for the "\n" and "\r\n" cases this system's inputs use.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// ChunkFile splits content into chunks using a greedy line-fill
// algorithm: lines accumulate until adding the next would exceed
// MaxSize bytes or MaxLines lines, provided the buffer already holds at
// least one line; then the buffer flushes. The final partial buffer
// always flushes after the last line.
func ChunkFile(fileID, content string, byteOffsetBase int, filePath string, p Params) []Chunk {
	lines := splitKeepEnds(content)

	var chunks []Chunk
	var buf []string
	bufSize := 0
	chunkStartLine := 1
	chunkStartByte := byteOffsetBase
	byteOffset := byteOffsetBase

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, finalizeChunk(fileID, buf, chunkStartLine, chunkStartByte, filePath))
	}

	for i, line := range lines {
		lineBytes := len(line)

		if len(buf) > 0 && (bufSize+lineBytes > p.MaxSize || len(buf) >= p.MaxLines) {
			flush()
			chunkStartLine = i + 1
			chunkStartByte = byteOffset
			buf = nil
			bufSize = 0
		}

		buf = append(buf, line)
		bufSize += lineBytes
		byteOffset += lineBytes
	}

	flush()

	return chunks
}

func finalizeChunk(fileID string, lines []string, startLine, startByte int, filePath string) Chunk {
	content := strings.Join(lines, "")
	contentBytes := []byte(content)
	size := len(contentBytes)
	sum := sha256.Sum256(contentBytes)
	contentSHA := hex.EncodeToString(sum[:])

	pathKey := filePath
	if pathKey == "" {
		pathKey = fileID
	}

	input := pathKey + strconv.Itoa(startLine) + contentSHA
	chunkSum := sha1.Sum([]byte(input))
	chunkID := hex.EncodeToString(chunkSum[:])[:20]

	return Chunk{
		ChunkID:       chunkID,
		FileID:        fileID,
		StartByte:     startByte,
		EndByte:       startByte + size,
		StartLine:     startLine,
		EndLine:       startLine + len(lines) - 1,
		ContentSHA256: contentSHA,
		SizeBytes:     size,
	}
}

// VerifyContentHash recomputes a chunk's content hash from raw bytes and
// reports whether it matches the chunk's recorded ContentSHA256. Used by
// the verifier and range resolver to confirm chunk boundaries are intact.
func VerifyContentHash(c Chunk, raw []byte) bool {
	return hashutil.HashBytes(raw) == c.ContentSHA256
}

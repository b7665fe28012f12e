package chunk

import (
	"strings"
	"testing"
)

func TestChunkFileSinglePassSmallFile(t *testing.T) {
	content := "line1\nline2\nline3\n"
	chunks := ChunkFile("f1", content, 0, "a.go", DefaultParams())

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.StartLine != 1 || c.EndLine != 3 {
		t.Fatalf("expected lines 1-3, got %d-%d", c.StartLine, c.EndLine)
	}
	if c.StartByte != 0 || c.EndByte != len(content) {
		t.Fatalf("expected byte range 0-%d, got %d-%d", len(content), c.StartByte, c.EndByte)
	}
}

func TestChunkFileSplitsOnMaxLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("x\n")
	}
	p := Params{MaxSize: 1 << 20, MaxLines: 3}
	chunks := ChunkFile("f1", b.String(), 0, "a.go", p)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks (3+3+3+1), got %d", len(chunks))
	}
	if chunks[0].StartLine != 1 || chunks[0].EndLine != 3 {
		t.Fatalf("first chunk should be lines 1-3, got %d-%d", chunks[0].StartLine, chunks[0].EndLine)
	}
	if chunks[3].StartLine != 10 || chunks[3].EndLine != 10 {
		t.Fatalf("last chunk should be line 10, got %d-%d", chunks[3].StartLine, chunks[3].EndLine)
	}
}

func TestChunkFileSplitsOnMaxSize(t *testing.T) {
	lines := []string{"aaaa\n", "bbbb\n", "cccc\n"}
	content := strings.Join(lines, "")
	p := Params{MaxSize: 6, MaxLines: 1000}
	chunks := ChunkFile("f1", content, 0, "a.go", p)

	if len(chunks) != 3 {
		t.Fatalf("expected one chunk per line given MaxSize=6, got %d", len(chunks))
	}
}

func TestChunkPartitionInvariant(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive\n"
	p := Params{MaxSize: 8, MaxLines: 2}
	chunks := ChunkFile("f1", content, 0, "a.go", p)

	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartByte != chunks[i-1].EndByte {
			t.Fatalf("chunks must partition byte range contiguously: chunk %d starts at %d, previous ended at %d", i, chunks[i].StartByte, chunks[i-1].EndByte)
		}
		if chunks[i].StartLine != chunks[i-1].EndLine+1 {
			t.Fatalf("chunks must partition lines contiguously: chunk %d starts at line %d, previous ended at %d", i, chunks[i].StartLine, chunks[i-1].EndLine)
		}
	}
}

func TestChunkIDDependsOnFilePath(t *testing.T) {
	content := "same content\n"
	a := ChunkFile("fileA", content, 0, "path/a.go", DefaultParams())
	b := ChunkFile("fileB", content, 0, "path/b.go", DefaultParams())

	if a[0].ChunkID == b[0].ChunkID {
		t.Fatal("identical content at different paths must yield distinct chunk IDs")
	}
}

func TestChunkIDStableAndDeterministic(t *testing.T) {
	content := "stable content\n"
	a := ChunkFile("f1", content, 0, "path/a.go", DefaultParams())
	b := ChunkFile("f1", content, 0, "path/a.go", DefaultParams())

	if a[0].ChunkID != b[0].ChunkID {
		t.Fatal("identical inputs must yield identical chunk IDs")
	}
	if len(a[0].ChunkID) != 20 {
		t.Fatalf("chunk_id must be 20 hex characters, got %d", len(a[0].ChunkID))
	}
}

func TestChunkFileEmptyContent(t *testing.T) {
	chunks := ChunkFile("f1", "", 0, "a.go", DefaultParams())
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty content, got %d", len(chunks))
	}
}

func TestVerifyContentHash(t *testing.T) {
	content := "verify me\n"
	chunks := ChunkFile("f1", content, 0, "a.go", DefaultParams())
	if !VerifyContentHash(chunks[0], []byte(content)) {
		t.Fatal("expected hash to verify against original content bytes")
	}
	if VerifyContentHash(chunks[0], []byte("tampered\n")) {
		t.Fatal("expected hash mismatch against tampered content")
	}
}

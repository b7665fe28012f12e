package eval

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/index"
)

func TestParseGoldQueriesGrammar(t *testing.T) {
	md := `# Gold Queries

1. **"retrieval engine"**
   - Expected: ` + "`core/engine.go`" + `, ` + "`retrieval/engine.go`" + `
   - Filter: layer=core artifact_type=code

2. **"button widget"**
Expected: ` + "`ui/button.go`" + `
`
	path := filepath.Join(t.TempDir(), "gold.md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}

	queries, err := ParseGoldQueries(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}

	q1 := queries[0]
	if q1.Query != "retrieval engine" {
		t.Fatalf("expected query text 'retrieval engine', got %q", q1.Query)
	}
	if len(q1.ExpectedPaths) != 2 || q1.ExpectedPaths[0] != "core/engine.go" {
		t.Fatalf("expected 2 expected paths, got %v", q1.ExpectedPaths)
	}
	if q1.Filters["layer"] != "core" || q1.Filters["artifact_type"] != "code" {
		t.Fatalf("expected filters layer=core artifact_type=code, got %v", q1.Filters)
	}

	q2 := queries[1]
	if len(q2.ExpectedPaths) != 1 || q2.ExpectedPaths[0] != "ui/button.go" {
		t.Fatalf("expected 1 expected path for query 2, got %v", q2.ExpectedPaths)
	}
}

func TestParseGoldQueriesMissingFile(t *testing.T) {
	if _, err := ParseGoldQueries(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Fatal("expected error for missing queries file")
	}
}

func buildEvalIndex(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "chunks.jsonl")
	lines := `{"chunk_id":"c1","path":"core/engine.go","start_line":1,"end_line":10,"layer":"core","artifact_type":"code","sha256":"` + strings64('a') + `","content":"retrieval engine core"}
{"chunk_id":"c2","path":"ui/button.go","start_line":1,"end_line":5,"layer":"ui","artifact_type":"code","sha256":"` + strings64('b') + `","content":"button widget ui"}
`
	if err := os.WriteFile(chunkPath, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "index.sqlite")
	if _, err := index.Build(index.BuildOptions{DBPath: dbPath, ChunkJSONLPath: chunkPath, RepoID: "repo1"}, nil); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strings64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

func TestRunComputesRecallAtK(t *testing.T) {
	db := buildEvalIndex(t)
	queries := []GoldQuery{
		{Query: "retrieval engine", ExpectedPaths: []string{"core/engine.go"}, Filters: map[string]string{}},
		{Query: "nonexistent term xyz", ExpectedPaths: []string{"nope.go"}, Filters: map[string]string{}},
	}

	report := Run(db, queries, 10)
	if report.Metrics["recall@10"].(float64) != 50.0 {
		t.Fatalf("expected recall@10 = 50.0, got %v", report.Metrics["recall@10"])
	}
	if report.Metrics["hits"].(int) != 1 {
		t.Fatalf("expected 1 hit, got %v", report.Metrics["hits"])
	}
	if len(report.Details) != 2 {
		t.Fatalf("expected 2 detail entries, got %d", len(report.Details))
	}
	if !report.Details[0].IsRelevant {
		t.Fatal("expected first query to be relevant")
	}
	if report.Details[1].IsRelevant {
		t.Fatal("expected second query to be irrelevant")
	}
}

func TestRunRecordsPerQueryErrorsWithoutAborting(t *testing.T) {
	db := buildEvalIndex(t)
	queries := []GoldQuery{
		{Query: `(unterminated AND`, ExpectedPaths: []string{"x"}, Filters: map[string]string{}},
		{Query: "button widget", ExpectedPaths: []string{"ui/button.go"}, Filters: map[string]string{}},
	}

	report := Run(db, queries, 10)
	if len(report.Details) != 2 {
		t.Fatalf("expected 2 detail entries despite first query's error, got %d", len(report.Details))
	}
	if !report.Details[1].IsRelevant {
		t.Fatal("expected second query to still evaluate successfully after first query errored")
	}
}

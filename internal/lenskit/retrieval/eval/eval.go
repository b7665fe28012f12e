// Package eval parses a gold-queries markdown file and scores an
// index's recall@k against it.
package eval

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/query"
)

// GoldQuery is one parsed entry from a gold-queries markdown file.
type GoldQuery struct {
	Query         string
	ExpectedPaths []string
	Filters       map[string]string
}

var (
	titleRe    = regexp.MustCompile(`^\d+\.\s+\*\*"(.+?)"\*\*`)
	bulletRe   = regexp.MustCompile(`^[\s*+\-]+`)
	expectRe   = regexp.MustCompile(`(?i)^\*?Expected:?\*?`)
	filterRe   = regexp.MustCompile(`(?i)^\*?Filter:?\*?`)
	backtickRe = regexp.MustCompile("`([^`]+)`")
	kvRe       = regexp.MustCompile(`(?:` + "`" + `|)?([\w.-]+)=([\w/.-]+)(?:` + "`" + `|)?`)
)

// ParseGoldQueries parses the numbered-bold-quoted grammar:
//
//	N. **"query text"**
//	Expected: `substring1`, `substring2`
//	Filter: key=value key2=value2
func ParseGoldQueries(path string) ([]GoldQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("queries file not found: %w", err)
	}

	var queries []GoldQuery
	var current *GoldQuery

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if m := titleRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				queries = append(queries, *current)
			}
			current = &GoldQuery{
				Query:   m[1],
				Filters: map[string]string{},
			}
			continue
		}

		if current == nil {
			continue
		}

		clean := bulletRe.ReplaceAllString(line, "")
		clean = strings.TrimSpace(clean)

		if expectRe.MatchString(clean) {
			for _, m := range backtickRe.FindAllStringSubmatch(line, -1) {
				current.ExpectedPaths = append(current.ExpectedPaths, m[1])
			}
		}

		if filterRe.MatchString(clean) {
			parts := strings.SplitN(clean, ":", 2)
			if len(parts) > 1 {
				for _, m := range kvRe.FindAllStringSubmatch(parts[1], -1) {
					current.Filters[m[1]] = m[2]
				}
			}
		}
	}

	if current != nil {
		queries = append(queries, *current)
	}

	return queries, nil
}

// QueryDetail is one gold query's evaluation outcome.
type QueryDetail struct {
	Query      string            `json:"query"`
	Filters    map[string]string `json:"filters"`
	Expected   []string          `json:"expected"`
	IsRelevant bool              `json:"is_relevant"`
	HitPath    *string           `json:"hit_path"`
	FoundCount int               `json:"found_count"`
	TopResults []string          `json:"top_results"`
	Error      string            `json:"error,omitempty"`
}

// Report is the full eval output, emitted as pure JSON with no
// progress rows mixed into stdout in JSON mode. Metrics carries
// recall@k alongside the raw hit/total counts, mirroring the shape
// the original evaluator produces.
type Report struct {
	Metrics map[string]any `json:"metrics"`
	Details []QueryDetail  `json:"details"`
}

// Run executes every gold query against db with k results each,
// computing recall@k. Per-query errors are recorded in
// details[].error and never abort the batch.
func Run(db *sql.DB, queries []GoldQuery, k int) Report {
	hits := 0
	details := make([]QueryDetail, 0, len(queries))

	for _, q := range queries {
		detail := QueryDetail{
			Query:    q.Query,
			Filters:  q.Filters,
			Expected: q.ExpectedPaths,
		}

		req := query.Request{
			Query: q.Query,
			K:     k,
			Filters: query.Filters{
				Repo:         q.Filters["repo"],
				Path:         q.Filters["path"],
				Ext:          q.Filters["ext"],
				Layer:        q.Filters["layer"],
				ArtifactType: q.Filters["artifact_type"],
			},
		}

		rs, err := query.Execute(db, req)
		if err != nil {
			detail.Error = err.Error()
			details = append(details, detail)
			continue
		}

		foundPaths := make([]string, len(rs.Results))
		for i, r := range rs.Results {
			foundPaths[i] = r.Path
		}
		detail.FoundCount = rs.Count
		detail.TopResults = foundPaths

		for _, hitPath := range foundPaths {
			if matched := matchesAnyExpected(hitPath, q.ExpectedPaths); matched {
				detail.IsRelevant = true
				hp := hitPath
				detail.HitPath = &hp
				break
			}
		}

		if detail.IsRelevant {
			hits++
		}

		details = append(details, detail)
	}

	total := len(queries)
	recall := 0.0
	if total > 0 {
		recall = float64(hits) / float64(total) * 100.0
	}

	return Report{
		Metrics: map[string]any{
			fmt.Sprintf("recall@%d", k): recall,
			"total_queries":             total,
			"hits":                      hits,
		},
		Details: details,
	}
}

func matchesAnyExpected(path string, expected []string) bool {
	for _, e := range expected {
		if strings.Contains(path, e) {
			return true
		}
	}
	return false
}

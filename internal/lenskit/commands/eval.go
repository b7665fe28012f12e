package commands

import (
	"database/sql"
	"fmt"
	"io"

	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/eval"
)

func evalCmd() *cobra.Command {
	var (
		dbPath     string
		goldPath   string
		k          int
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score an index's recall@k against a gold-queries file",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := eval.ParseGoldQueries(goldPath)
			if err != nil {
				return err
			}

			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			report := eval.Run(db, queries, k)
			return formatter(cmd.OutOrStdout()).Print(report, printEvalReport)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite index path")
	cmd.Flags().StringVar(&goldPath, "queries", "", "gold-queries markdown file")
	cmd.Flags().IntVar(&k, "k", 10, "result cutoff for recall@k")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("queries")

	return cmd
}

func printEvalReport(w io.Writer, data interface{}) {
	r := data.(eval.Report)
	fmt.Fprintf(w, "metrics: %v\n", r.Metrics)
	for _, d := range r.Details {
		status := "miss"
		if d.IsRelevant {
			status = "hit"
		}
		fmt.Fprintf(w, "  [%s] %q\n", status, d.Query)
	}
}

package commands

import (
	"database/sql"
	"fmt"
	"io"

	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/query"
)

func queryCmd() *cobra.Command {
	var (
		dbPath string
		k      string
		repo   string
		path   string
		ext    string
		layer  string
		atype  string
		where  string
	)

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a full-text or metadata-only query against a built index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q string
			if len(args) == 1 {
				q = args[0]
			}

			kVal, err := query.ParseK(k)
			if err != nil {
				return err
			}

			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := query.Execute(db, query.Request{
				Query: q,
				K:     kVal,
				Filters: query.Filters{
					Repo: repo, Path: path, Ext: ext, Layer: layer, ArtifactType: atype,
				},
				Where: where,
			})
			if err != nil {
				return err
			}

			return formatter(cmd.OutOrStdout()).Print(result, printQueryResult)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite index path")
	cmd.Flags().StringVar(&k, "k", "10", "maximum result count")
	cmd.Flags().StringVar(&repo, "repo", "", "filter: repo_id")
	cmd.Flags().StringVar(&path, "path", "", "filter: path glob")
	cmd.Flags().StringVar(&ext, "ext", "", "filter: file extension")
	cmd.Flags().StringVar(&layer, "layer", "", "filter: architectural layer")
	cmd.Flags().StringVar(&atype, "type", "", "filter: artifact type")
	cmd.Flags().StringVar(&where, "where", "", "advanced expr-lang filter, applied after structural filters")
	cmd.MarkFlagRequired("db")

	return cmd
}

func printQueryResult(w io.Writer, data interface{}) {
	rs := data.(*query.ResultSet)
	fmt.Fprintf(w, "%d results (engine=%s, mode=%s)\n", rs.Count, rs.Engine, rs.QueryMode)
	for _, r := range rs.Results {
		fmt.Fprintf(w, "  %-8.4f %s:%s\n", r.Score, r.Path, r.Range)
	}
}

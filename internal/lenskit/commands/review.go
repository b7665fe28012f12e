package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/artifact"
	"github.com/heimgewebe/lenskit/internal/lenskit/delta"
)

func reviewCmd() *cobra.Command {
	var (
		oldRoot string
		newRoot string
		repo    string
		hubDir  string
		runID   string
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Generate a pr-schau delta review between two repository snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				runID = uuid.NewString()
			}

			result, err := delta.Generate(context.Background(), delta.Options{
				OldRoot: oldRoot,
				NewRoot: newRoot,
				Repo:    repo,
				HubDir:  hubDir,
				RunID:   runID,
				Gen:     artifact.Generator{Name: "lenskit", Version: "dev", Platform: "go"},
			})
			if err != nil {
				return err
			}

			return formatter(cmd.OutOrStdout()).Print(result, printReviewResult)
		},
	}

	cmd.Flags().StringVar(&oldRoot, "old", "", "old snapshot root")
	cmd.Flags().StringVar(&newRoot, "new", "", "new snapshot root")
	cmd.Flags().StringVar(&repo, "repo", "", "repository name, used in the output path")
	cmd.Flags().StringVar(&hubDir, "hub", "", "hub directory under which .repolens/pr-schau/<repo>/<ts> is created")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: a generated uuid)")
	cmd.MarkFlagRequired("old")
	cmd.MarkFlagRequired("new")
	cmd.MarkFlagRequired("repo")
	cmd.MarkFlagRequired("hub")

	return cmd
}

func printReviewResult(w io.Writer, data interface{}) {
	r := data.(*delta.Result)
	fmt.Fprintf(w, "%s\n", r.Dir)
	fmt.Fprintf(w, "  added=%d changed=%d removed=%d\n",
		r.Document.Summary.Added, r.Document.Summary.Changed, r.Document.Summary.Removed)
}

// Package commands wires lenskit's components into a cobra CLI: one
// subcommand per pipeline stage, plus the composite `emit` and `review`
// commands that run several stages in sequence.
package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/pkg/output"
)

var (
	// GlobalJSONOutput and GlobalMinOutput are synced from the --json
	// and --min persistent flags in PersistentPreRunE so main.go's
	// error path can format with the same settings the command used.
	GlobalJSONOutput bool
	GlobalMinOutput  bool
)

// RootCmd returns the root command for the lenskit binary.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lenskit",
		Short:         "Repository analysis, indexing, and review pipeline",
		Long:          `lenskit scans a repository, chunks and tags its files, emits a merged corpus with a retrieval index, and generates delta reviews between two snapshots.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
				GlobalJSONOutput = true
			}
			if f := cmd.Flags().Lookup("min"); f != nil && f.Changed {
				GlobalMinOutput = true
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&GlobalJSONOutput, "json", false, "output as JSON")
	root.PersistentFlags().BoolVar(&GlobalMinOutput, "min", false, "minimal/token-optimized output (implies --json)")

	root.AddCommand(scanCmd())
	root.AddCommand(chunkCmd())
	root.AddCommand(emitCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(rangeCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(reviewCmd())

	return root
}

// formatter builds the output.Formatter every subcommand prints
// through, honoring --min's implicit --json.
func formatter(w io.Writer) *output.Formatter {
	return output.New(GlobalJSONOutput || GlobalMinOutput, GlobalMinOutput, w)
}

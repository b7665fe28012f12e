package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

func emitCmd() *cobra.Command {
	var (
		mergesDir     string
		base          string
		repoName      string
		projectConfig string
		splitBytes    int
		redactSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "emit <root>",
		Short: "Run the full pipeline: scan, tag, redact, chunk, render, and emit artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			if base == "" {
				base = filepath.Base(filepath.Clean(root))
			}
			if repoName == "" {
				repoName = base
			}
			if mergesDir == "" {
				mergesDir = filepath.Join(root, ".lenskit", "merges")
			}

			result, err := RunEmit(EmitOptions{
				Root:          root,
				MergesDir:     mergesDir,
				Base:          base,
				RepoName:      repoName,
				ProjectConfig: projectConfig,
				SplitBytes:    splitBytes,
				RedactSecrets: redactSecrets,
			})
			if err != nil {
				return err
			}

			return formatter(cmd.OutOrStdout()).Print(result, printEmitResult)
		},
	}

	cmd.Flags().StringVar(&mergesDir, "out", "", "output directory for emitted artifacts (default: <root>/.lenskit/merges)")
	cmd.Flags().StringVar(&base, "base", "", "base filename stem for emitted artifacts (default: the root directory's name)")
	cmd.Flags().StringVar(&repoName, "repo", "", "repository display name (default: --base)")
	cmd.Flags().StringVar(&projectConfig, "config", "", "path to a .lenskit.toml project config")
	cmd.Flags().IntVar(&splitBytes, "split-bytes", 0, "split the canonical markdown into parts no larger than this many bytes (0 = single file)")
	cmd.Flags().BoolVar(&redactSecrets, "redact", true, "redact detected secrets from file content before rendering")

	return cmd
}

func printEmitResult(w io.Writer, data interface{}) {
	result := data.(*EmitResult)
	fmt.Fprintf(w, "run %s: %d files, %d chunks\n", result.RunID, result.TotalFiles, result.TotalChunks)
	for _, p := range result.CanonicalParts {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "  %s\n  %s\n  %s\n  %s\n  %s\n  %s\n",
		result.SidecarPath, result.ChunkIndexPath, result.DumpIndexPath,
		result.DerivedIndexPath, result.ArchitecturePath, result.BundlePath)
}

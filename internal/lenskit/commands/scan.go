package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/config"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/scan"
)

func scanCmd() *cobra.Command {
	var (
		includeHidden  bool
		calculateHash  bool
		noGitignore    bool
		maxBytes       int64
		projectConfig  string
	)

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Walk a repository tree and list classified files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scan.Options{
				Root:           args[0],
				IncludeHidden:  includeHidden,
				CalculateHash:  calculateHash,
				MaxBytes:       maxBytes,
				HonorGitignore: !noGitignore,
			}

			if projectConfig != "" {
				cfg, err := config.LoadProjectConfig(projectConfig)
				if err != nil {
					return err
				}
				opts.ExtFilters = cfg.Scan.ExtAllow
				opts.HonorGitignore = cfg.Scan.RespectGitignore && !noGitignore
			}

			result, err := scan.Scan(context.Background(), opts)
			if err != nil {
				return err
			}

			return formatter(cmd.OutOrStdout()).Print(result, printScanResult)
		},
	}

	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "include dot-prefixed files and directories")
	cmd.Flags().BoolVar(&calculateHash, "hash", true, "compute a SHA-256 for every scanned text file")
	cmd.Flags().BoolVar(&noGitignore, "no-gitignore", false, "disable .gitignore filtering")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "skip files larger than this many bytes (0 = unlimited)")
	cmd.Flags().StringVar(&projectConfig, "config", "", "path to a .lenskit.toml project config")

	return cmd
}

func printScanResult(w io.Writer, data interface{}) {
	result := data.(*scan.RepoScan)
	fmt.Fprintf(w, "%s (%s)\n", result.Name, result.Root)
	var total int64
	skipped := 0
	for _, f := range result.Files {
		if f.Skipped {
			skipped++
			continue
		}
		total += f.Size
	}
	fmt.Fprintf(w, "%d files (%s), %d skipped\n", len(result.Files)-skipped, humanize.Bytes(uint64(total)), skipped)
	for _, f := range result.Files {
		status := string(f.Class)
		if f.Skipped {
			status = "skipped: " + f.Reason
		}
		fmt.Fprintf(w, "  %-60s %10s  %s\n", f.Path, humanize.Bytes(uint64(f.Size)), status)
	}
}

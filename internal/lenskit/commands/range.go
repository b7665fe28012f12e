package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/rangeref"
)

func rangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Resolve byte ranges against a bundle manifest",
	}
	cmd.AddCommand(rangeGetCmd())
	return cmd
}

func rangeGetCmd() *cobra.Command {
	var (
		manifestPath  string
		artifactRole  string
		filePath      string
		startByte     int64
		endByte       int64
		startLine     int
		endLine       int
		contentSHA256 string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Resolve one RangeRef against a bundle manifest and print the bytes",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := rangeref.Resolve(manifestPath, rangeref.RangeRef{
				ArtifactRole:  artifactRole,
				FilePath:      filePath,
				StartByte:     startByte,
				EndByte:       endByte,
				StartLine:     startLine,
				EndLine:       endLine,
				ContentSHA256: contentSHA256,
			})
			if err != nil {
				return err
			}
			return formatter(cmd.OutOrStdout()).Print(resolved, printResolved)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "bundle.manifest.json path")
	cmd.Flags().StringVar(&artifactRole, "role", "", "artifact role to resolve within")
	cmd.Flags().StringVar(&filePath, "file", "", "file path, for artifacts that are directories of files")
	cmd.Flags().Int64Var(&startByte, "start-byte", 0, "range start byte, inclusive")
	cmd.Flags().Int64Var(&endByte, "end-byte", 0, "range end byte, exclusive")
	cmd.Flags().IntVar(&startLine, "start-line", 0, "range start line")
	cmd.Flags().IntVar(&endLine, "end-line", 0, "range end line")
	cmd.Flags().StringVar(&contentSHA256, "content-sha256", "", "expected content hash, verified after resolution")
	cmd.MarkFlagRequired("manifest")
	cmd.MarkFlagRequired("role")

	return cmd
}

func printResolved(w io.Writer, data interface{}) {
	r := data.(*rangeref.Resolved)
	fmt.Fprintf(w, "%d bytes, lines %d-%d, sha256=%s\n", r.Bytes, r.Lines[0], r.Lines[1], r.SHA256)
	fmt.Fprintln(w, r.Text)
}

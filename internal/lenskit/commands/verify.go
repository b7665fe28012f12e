package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/verify"
)

func verifyCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "verify <bundle-dir>",
		Short: "Verify a bundle manifest's completeness against the artifacts it describes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := verify.LevelBasic
			if full {
				level = verify.LevelFull
			}

			if err := verify.Verify(args[0], level); err != nil {
				return err
			}

			result := struct {
				Dir   string `json:"dir"`
				Level string `json:"level"`
				OK    bool   `json:"ok"`
			}{Dir: args[0], Level: string(level), OK: true}
			return formatter(cmd.OutOrStdout()).Print(result, printVerifyResult)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "run full verification (hashes, truncation, zones, expected_bytes) instead of basic")

	return cmd
}

func printVerifyResult(w io.Writer, data interface{}) {
	r := data.(struct {
		Dir   string `json:"dir"`
		Level string `json:"level"`
		OK    bool   `json:"ok"`
	})
	fmt.Fprintf(w, "%s: ok (%s)\n", r.Dir, r.Level)
}

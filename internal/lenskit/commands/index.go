package commands

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/heimgewebe/lenskit/internal/lenskit/core/artifact"
	"github.com/heimgewebe/lenskit/internal/lenskit/core/hashutil"
	"github.com/heimgewebe/lenskit/internal/lenskit/retrieval/index"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or verify a retrieval index",
	}
	cmd.AddCommand(indexBuildCmd())
	cmd.AddCommand(indexVerifyCmd())
	return cmd
}

func indexBuildCmd() *cobra.Command {
	var (
		dbPath      string
		chunkPath   string
		sidecarPath string
		dumpPath    string
		repoID      string
		runID       string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a fresh sqlite index from a chunk stream and sidecar",
		RunE: func(cmd *cobra.Command, args []string) error {
			sidecarData, err := os.ReadFile(sidecarPath)
			if err != nil {
				return err
			}
			var sidecar artifact.Sidecar
			if err := json.Unmarshal(sidecarData, &sidecar); err != nil {
				return err
			}

			chunkSHA256, _, status := hashutil.HashFile(chunkPath)
			if status != hashutil.StatusOK {
				return fmt.Errorf("failed to hash chunk stream: %s", status)
			}
			dumpSHA256, _, status := hashutil.HashFile(dumpPath)
			if status != hashutil.StatusOK {
				return fmt.Errorf("failed to hash dump index: %s", status)
			}

			rows := make([]index.SidecarFileRow, 0, len(sidecar.Files))
			for _, f := range sidecar.Files {
				rows = append(rows, index.SidecarFileRow{
					FileID: f.ID, Path: f.Path, SHA256: f.SHA256, SizeBytes: f.SizeBytes, Language: f.Language,
				})
			}

			stats, err := index.Build(index.BuildOptions{
				DBPath:           dbPath,
				ChunkJSONLPath:   chunkPath,
				RepoID:           repoID,
				RunID:            runID,
				DumpSHA256:       dumpSHA256,
				ChunkIndexSHA256: chunkSHA256,
				ConfigJSON:       "{}",
			}, rows)
			if err != nil {
				return err
			}

			return formatter(cmd.OutOrStdout()).Print(stats, printIngestStats)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "destination sqlite index path")
	cmd.Flags().StringVar(&chunkPath, "chunks", "", "chunk JSONL stream path")
	cmd.Flags().StringVar(&sidecarPath, "sidecar", "", "sidecar JSON path")
	cmd.Flags().StringVar(&dumpPath, "dump", "", "dump-index.json path")
	cmd.Flags().StringVar(&repoID, "repo-id", "", "repository identifier recorded on ingested rows")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier recorded in index_meta")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("chunks")
	cmd.MarkFlagRequired("sidecar")
	cmd.MarkFlagRequired("dump")

	return cmd
}

func indexVerifyCmd() *cobra.Command {
	var (
		dbPath    string
		dumpPath  string
		chunkPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a built index's recorded provenance against its current inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := index.VerifyIndex(db, dumpPath, chunkPath)
			if err != nil {
				return err
			}
			if !result.OK {
				fmt.Fprintln(os.Stderr, "warning: index appears stale")
			}
			return formatter(cmd.OutOrStdout()).Print(result, printIndexVerifyResult)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite index path")
	cmd.Flags().StringVar(&dumpPath, "dump", "", "dump-index.json path to re-hash")
	cmd.Flags().StringVar(&chunkPath, "chunks", "", "chunk JSONL stream path to re-hash")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("dump")
	cmd.MarkFlagRequired("chunks")

	return cmd
}

func printIngestStats(w io.Writer, data interface{}) {
	s := data.(*index.IngestStats)
	fmt.Fprintf(w, "ingested %d chunks (%d empty, %d invalid json, %d missing chunk_id)\n",
		s.IngestedChunksCount, s.EmptyLines, s.InvalidJSONLines, s.MissingChunkIDLines)
}

func printIndexVerifyResult(w io.Writer, data interface{}) {
	r := data.(*index.VerifyResult)
	if r.OK {
		fmt.Fprintln(w, "index is current")
		return
	}
	fmt.Fprintln(w, "index is stale:")
	if !r.DumpSHA256Match {
		fmt.Fprintf(w, "  dump sha256 mismatch: recorded=%s actual=%s\n", r.RecordedDumpSHA256, r.ActualDumpSHA256)
	}
	if !r.ChunkSHA256Match {
		fmt.Fprintf(w, "  chunk index sha256 mismatch: recorded=%s actual=%s\n", r.RecordedChunkSHA256, r.ActualChunkSHA256)
	}
}

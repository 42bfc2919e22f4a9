package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/searchcore/internal/errs"
	"github.com/AleutianAI/searchcore/internal/index"
)

func newBuildCommand() *cobra.Command {
	var (
		inputPath string
		outputDir string
		spillDir  string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a sealed index from a JSONL document corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := index.BuildOptions{
				InputPath: inputPath,
				OutputDir: outputDir,
				SpillDir:  spillDir,
				Workers:   workers,
				OnSkip: func(lineNo int, kind errs.Kind, detail string) {
					slog.Warn("skipped input line",
						slog.Int("line", lineNo),
						slog.String("kind", kind.String()),
						slog.String("detail", detail),
					)
				},
			}
			stats, err := index.Build(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			fmt.Printf("indexed %d documents, %d terms, in %s\n", stats.NumDocs, stats.NumTerms, stats.Elapsed)
			if stats.MalformedLines > 0 || stats.DuplicateExtIDs > 0 {
				fmt.Printf("skipped %d malformed lines, %d duplicate ids\n", stats.MalformedLines, stats.DuplicateExtIDs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to the JSONL document corpus (required)")
	cmd.Flags().StringVar(&outputDir, "output", "", "directory to write the sealed index into (required)")
	cmd.Flags().StringVar(&spillDir, "spill-dir", "", "scratch directory for the build's spill store (defaults to a temp dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of pass-2 workers (defaults to NumCPU)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

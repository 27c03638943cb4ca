package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/analyzer"
	"github.com/curatord/curator/internal/filesource"
	"github.com/curatord/curator/internal/hashing"
)

var analyzeFuzzy bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <session-id>",
	Short: "Detect duplicate files in a scanned session",
	Long: `Run the deduplication pipeline over a session: size/extension
pre-filter, quick-hash narrowing, and full-hash verification. Each group
of byte-identical files gets one canonical member; the rest are flagged
as duplicates.

With --fuzzy, similarly named leftovers are additionally flagged for
manual review. Fuzzy candidates are never merged automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dedupCfg := cfg.Dedup
		if analyzeFuzzy {
			dedupCfg.FuzzyEnabled = true
		}

		hasher := hashing.New(cfg.Hash)
		a := analyzer.New(store, filesource.NewLocal(), hasher, dedupCfg, logger)

		result, err := a.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s Analysis complete\n\n", green("✓"))
		fmt.Printf("  Files considered:  %d\n", result.FilesConsidered)
		fmt.Printf("  Duplicate groups:  %d\n", len(result.Groups))
		fmt.Printf("  Duplicate files:   %d\n", result.DuplicateFiles)
		if dedupCfg.FuzzyEnabled {
			fmt.Printf("  Review candidates: %d\n", len(result.ReviewCandidates))
			for _, c := range result.ReviewCandidates {
				fmt.Printf("    %s %s ~ %s (%.0f%%)\n", yellow("?"), c.PathA, c.PathB, c.Similarity*100)
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeFuzzy, "fuzzy", false, "Flag similarly named files for manual review")
}

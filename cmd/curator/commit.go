package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/executor"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/snapshot"
)

var (
	commitDryRun        bool
	commitSnapshot      bool
	commitIncludeReview bool
)

var commitCmd = &cobra.Command{
	Use:   "commit <plan-id>",
	Short: "Apply a validated plan to the live tree",
	Long: `Move files according to a validated plan. Every applied action is
recorded in the rollback log before the next one runs. A failure halts
the commit: applied actions stay applied, the remainder is reported,
and rollback is always a separate, explicit command.

Actions flagged requires_review are excluded unless --include-review
is given. --snapshot captures pre-state before the first mutation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hasher := hashing.New(cfg.Hash)
		snaps := snapshot.New(store, hasher, cfg.Snapshots, logger)
		e := executor.New(store, snaps, hasher, dbPath, logger)

		result, commitErr := e.Commit(cmd.Context(), args[0], executor.Options{
			DryRun:        commitDryRun,
			IncludeReview: commitIncludeReview,
			Snapshot:      commitSnapshot,
		})
		if result == nil {
			return commitErr
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if result.DryRun {
			fmt.Printf("\n%s Dry run: %d actions would apply, %d would skip\n\n",
				gray("→"), len(result.Unapplied), len(result.Skipped))
			return nil
		}

		if commitErr != nil {
			fmt.Printf("\n%s Commit halted at action %s\n\n", red("✗"), result.FailedID)
			fmt.Printf("  Applied:   %d (still applied; rollback is explicit)\n", len(result.Applied))
			fmt.Printf("  Unapplied: %d\n", len(result.Unapplied))
			for _, id := range result.Unapplied {
				fmt.Printf("    %s\n", gray(id))
			}
			fmt.Println()
			fmt.Printf("%s To reverse the applied actions: curator rollback %s\n\n", gray("→"), args[0])
			return commitErr
		}

		fmt.Printf("\n%s Commit complete\n\n", green("✓"))
		fmt.Printf("  Applied: %d\n", len(result.Applied))
		fmt.Printf("  Skipped: %d\n", len(result.Skipped))
		if result.SnapshotID != "" {
			fmt.Printf("  Snapshot: %s\n", cyan(result.SnapshotID))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().BoolVar(&commitDryRun, "dry-run", false, "Report what would happen without touching anything")
	commitCmd.Flags().BoolVar(&commitSnapshot, "snapshot", false, "Capture a pre-commit snapshot")
	commitCmd.Flags().BoolVar(&commitIncludeReview, "include-review", false, "Also commit actions flagged requires_review")
}

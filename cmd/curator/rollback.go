package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/rollback"
)

var (
	rollbackDryRun bool
	rollbackEntry  int64
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <plan-id>",
	Short: "Reverse a committed plan from its rollback log",
	Long: `Replay a plan's rollback log in reverse, moving every file back to
where it was before the commit. A restore target occupied by an
unrelated file aborts that entry and the rest continue; nothing is
ever silently overwritten.

With --entry only that single log entry is reversed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := rollback.New(store, hashing.New(cfg.Hash), logger)

		if rollbackEntry != 0 {
			if err := m.RollbackAction(cmd.Context(), args[0], rollbackEntry, rollbackDryRun); err != nil {
				return err
			}
			fmt.Printf("\n%s Entry %d rolled back\n\n", color.GreenString("✓"), rollbackEntry)
			return nil
		}

		result, err := m.RollbackPlan(cmd.Context(), args[0], rollbackDryRun)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(result.Failed) > 0 {
			fmt.Printf("\n%s Rollback finished with integrity failures\n\n", red("✗"))
		} else if result.DryRun {
			fmt.Printf("\n%s Dry run: %d entries would be restored\n\n", gray("→"), len(result.Restored))
			return nil
		} else {
			fmt.Printf("\n%s Rollback complete\n\n", green("✓"))
		}
		fmt.Printf("  Restored: %d\n", len(result.Restored))
		fmt.Printf("  Skipped:  %d (already rolled back)\n", len(result.Skipped))
		for _, f := range result.Failed {
			fmt.Printf("  %s entry %d: %s (%s)\n", red("✗"), f.EntryID, f.Reason, f.Path)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().BoolVar(&rollbackDryRun, "dry-run", false, "Check integrity without moving anything")
	rollbackCmd.Flags().Int64Var(&rollbackEntry, "entry", 0, "Reverse only this rollback log entry")
}

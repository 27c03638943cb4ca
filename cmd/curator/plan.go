package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/classify"
	"github.com/curatord/curator/internal/planner"
	"github.com/curatord/curator/internal/types"
)

var planCmd = &cobra.Command{
	Use:   "plan <session-id>",
	Short: "Compute a migration plan for an analyzed session",
	Long: `Compute target paths for every file in a session and persist the
result as a draft plan. Duplicates are quarantined, files already in
place become skips, and low-confidence classifications are flagged for
review. Planning never touches the filesystem.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := planner.New(store, classify.NewStatic(cfg.Plan.Domain), cfg.Plan, cfg.Validation.ConfidenceThreshold, logger)

		plan, err := p.BuildPlan(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		actions, err := store.ListActions(cmd.Context(), plan.ID)
		if err != nil {
			return err
		}
		var moves, quarantines, archives, skips, review int
		for _, a := range actions {
			switch a.Type {
			case types.ActionMove:
				moves++
			case types.ActionQuarantine:
				quarantines++
			case types.ActionArchive:
				archives++
			case types.ActionSkip:
				skips++
			}
			if a.RequiresReview {
				review++
			}
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s Plan created\n\n", green("✓"))
		fmt.Printf("  Plan:        %s\n", cyan(plan.ID))
		fmt.Printf("  Moves:       %d\n", moves)
		fmt.Printf("  Quarantines: %d\n", quarantines)
		fmt.Printf("  Archives:    %d\n", archives)
		fmt.Printf("  Skips:       %d\n", skips)
		if review > 0 {
			fmt.Printf("  Review:      %d (excluded from commit unless --include-review)\n", review)
		}
		fmt.Println()
		fmt.Printf("%s Next: curator stage %s\n\n", gray("→"), plan.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

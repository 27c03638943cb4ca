package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/types"
)

var discardCmd = &cobra.Command{
	Use:   "discard <plan-id>",
	Short: "Discard a plan that has not been committed",
	Long: `Mark a plan as discarded. Any plan can be discarded until it is
committed; a committed plan can only be reversed with rollback.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := store.GetPlan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if plan == nil {
			return fmt.Errorf("plan %s not found", args[0])
		}
		if plan.Status == types.PlanCommitted {
			return fmt.Errorf("plan %s is committed; use curator rollback instead", args[0])
		}
		if err := store.UpdatePlanStatus(cmd.Context(), plan.ID, plan.Status, types.PlanDiscarded); err != nil {
			return err
		}
		fmt.Printf("\n%s Plan %s discarded\n\n", color.GreenString("✓"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discardCmd)
}

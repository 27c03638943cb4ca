package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sessions and plans in this repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := store.ListSessions(cmd.Context())
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(sessions) == 0 {
			fmt.Println("\nNo scan sessions. Start with: curator scan <root>")
			fmt.Println()
			return nil
		}

		fmt.Println()
		for _, s := range sessions {
			fmt.Printf("%s %s  %s  %d files (%d unreadable)\n",
				statusGlyph(s.Status),
				cyan(s.ID),
				s.StartedAt.Local().Format("2006-01-02 15:04"),
				s.FilesSeen,
				s.FilesFailed)

			groups, err := store.ListDuplicateGroups(cmd.Context(), s.ID)
			if err != nil {
				return err
			}
			if len(groups) > 0 {
				dups := 0
				for _, g := range groups {
					dups += len(g.MemberIDs) - 1
				}
				fmt.Printf("    %d duplicate groups, %d redundant files\n", len(groups), dups)
			}

			plans, err := store.ListPlans(cmd.Context(), s.ID)
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Printf("    plan %s  %s  %s\n",
					cyan(p.ID),
					planStatusColor(p.Status),
					gray(p.UpdatedAt.Local().Format("2006-01-02 15:04")))
			}
		}
		fmt.Println()
		return nil
	},
}

func statusGlyph(s types.SessionStatus) string {
	switch s {
	case types.SessionComplete:
		return color.GreenString("✓")
	case types.SessionFailed:
		return color.RedString("✗")
	default:
		return color.YellowString("…")
	}
}

func planStatusColor(s types.PlanStatus) string {
	switch s {
	case types.PlanCommitted:
		return color.GreenString(string(s))
	case types.PlanValidated:
		return color.CyanString(string(s))
	case types.PlanDiscarded:
		return color.New(color.FgHiBlack).Sprint(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

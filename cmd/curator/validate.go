package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/staging"
	"github.com/curatord/curator/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan-id>",
	Short: "Run the validation checklist over a staged plan",
	Long: `Check every staged action: source readability, target writability,
path length, filename sanitization, free space, classification
confidence, and target collisions. The result is a report, not an
error; a clean report advances the plan to validated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := staging.New(store, cfg.Staging, cfg.Validation, logger)
		report, err := m.Validate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if report.Blocking() {
			fmt.Printf("\n%s Validation found blocking issues\n\n", red("✗"))
		} else {
			fmt.Printf("\n%s Validation passed\n\n", green("✓"))
		}
		fmt.Printf("  Actions checked: %d\n", report.ActionsChecked)
		fmt.Printf("  Requires review: %d\n", report.ReviewCount)

		for _, f := range report.Findings {
			mark := yellow("!")
			if f.Severity == types.SeverityError {
				mark = red("✗")
			}
			fmt.Printf("  %s [%s] %s\n", mark, f.Check, f.Message)
		}
		for _, c := range report.Conflicts {
			if c.Resolved {
				fmt.Printf("  %s %s at %s (resolved)\n", green("✓"), c.Type, c.TargetPath)
				continue
			}
			fmt.Printf("  %s %s at %s (action %s)\n", red("✗"), c.Type, c.TargetPath, c.ActionID)
		}
		fmt.Println()
		if report.Blocking() {
			fmt.Printf("%s Resolve conflicts with: curator resolve %s\n\n", gray("→"), args[0])
		} else {
			fmt.Printf("%s Next: curator commit %s\n\n", gray("→"), args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

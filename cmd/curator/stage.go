package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/staging"
	"github.com/curatord/curator/internal/types"
)

var stageMethod string

var stageCmd = &cobra.Command{
	Use:   "stage <plan-id>",
	Short: "Materialize a plan in the isolated staging area",
	Long: `Build a preview of the plan's target layout under the staging root.
Nothing outside the staging area is touched. Re-staging a plan replaces
its previous preview.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := cfg.Staging.Method
		if stageMethod != "" {
			method = types.StageMethod(strings.ToUpper(stageMethod))
			if !method.IsValid() {
				return fmt.Errorf("invalid --method %q (want symlink, hardlink, or copy)", stageMethod)
			}
		}

		m := staging.New(store, cfg.Staging, cfg.Validation, logger)
		if err := m.Stage(cmd.Context(), args[0], method); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s Plan staged\n\n", green("✓"))
		fmt.Printf("  Preview: %s\n\n", cyan(m.PlanDir(args[0])))
		fmt.Printf("%s Next: curator validate %s\n\n", gray("→"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)
	stageCmd.Flags().StringVar(&stageMethod, "method", "", "Staging method: symlink, hardlink, or copy (default from config)")
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/conflict"
	"github.com/curatord/curator/internal/staging"
	"github.com/curatord/curator/internal/types"
)

var (
	resolveAction    string
	resolveType      string
	resolveStrategy  string
	resolveConfirmed bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <plan-id>",
	Short: "Resolve target-path conflicts in a plan",
	Long: `Apply a resolution strategy to conflicted actions. With --action and
--strategy one conflict is resolved non-interactively; without them each
unresolved conflict is prompted for in turn.

Strategies: SKIP, RENAME, REPLACE, KEEP_NEWEST, KEEP_LARGEST, ASK.
REPLACE additionally needs --confirm: overwriting is never implicit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]
		resolver := conflict.New(store)

		if resolveAction != "" {
			req := conflict.Request{
				ActionID:     resolveAction,
				ConflictType: types.ConflictType(resolveType),
				Strategy:     types.ConflictStrategy(strings.ToUpper(resolveStrategy)),
				Confirmed:    resolveConfirmed,
			}
			res, err := resolver.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			printResolution(res)
			return revalidate(cmd, planID)
		}

		// Interactive: re-validate to enumerate what is still unresolved
		m := staging.New(store, cfg.Staging, cfg.Validation, logger)
		report, err := m.Validate(cmd.Context(), planID)
		if err != nil {
			return err
		}
		var pending []types.Conflict
		for _, c := range report.Conflicts {
			if !c.Resolved {
				pending = append(pending, c)
			}
		}
		if len(pending) == 0 {
			fmt.Printf("\n%s No unresolved conflicts\n\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		}

		rl, err := readline.New("strategy> ")
		if err != nil {
			return fmt.Errorf("failed to start prompt: %w", err)
		}
		defer rl.Close()

		yellow := color.New(color.FgYellow).SprintFunc()
		for _, c := range pending {
			fmt.Printf("\n%s %s\n", yellow("conflict:"), c.Type)
			fmt.Printf("  action: %s\n", c.ActionID)
			fmt.Printf("  target: %s\n", c.TargetPath)
			fmt.Printf("  choose: skip / rename / replace / keep_newest / keep_largest / ask\n")

			line, err := rl.Readline()
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("aborted; remaining conflicts stay unresolved")
				break
			}
			if err != nil {
				return err
			}
			strategy := types.ConflictStrategy(strings.ToUpper(strings.TrimSpace(line)))
			if !strategy.IsValid() {
				fmt.Printf("  unknown strategy %q, recording ASK\n", line)
				strategy = types.StrategyAsk
			}

			confirmed := false
			if strategy == types.StrategyReplace {
				rl.SetPrompt("overwrite existing file? (yes/no)> ")
				answer, err := rl.Readline()
				rl.SetPrompt("strategy> ")
				if err != nil {
					return err
				}
				confirmed = strings.EqualFold(strings.TrimSpace(answer), "yes")
				if !confirmed {
					fmt.Println("  not confirmed, recording ASK")
					strategy = types.StrategyAsk
				}
			}

			res, err := resolver.Resolve(cmd.Context(), conflict.Request{
				ActionID:     c.ActionID,
				ConflictType: c.Type,
				Strategy:     strategy,
				Confirmed:    confirmed,
			})
			if err != nil {
				return err
			}
			printResolution(res)
		}

		return revalidate(cmd, planID)
	},
}

func printResolution(res *types.ConflictResolution) {
	green := color.New(color.FgGreen).SprintFunc()
	if res.Strategy == types.StrategyAsk {
		fmt.Printf("  %s recorded ASK for action %s (commit stays blocked)\n", color.YellowString("!"), res.ActionID)
		return
	}
	fmt.Printf("  %s %s for action %s", green("✓"), res.Strategy, res.ActionID)
	if res.ResolvedPath != "" {
		fmt.Printf(" → %s", res.ResolvedPath)
	}
	fmt.Println()
}

// revalidate refreshes conflict state after resolutions changed targets
func revalidate(cmd *cobra.Command, planID string) error {
	m := staging.New(store, cfg.Staging, cfg.Validation, logger)
	report, err := m.Validate(cmd.Context(), planID)
	if err != nil {
		return err
	}
	gray := color.New(color.FgHiBlack).SprintFunc()
	if report.Blocking() {
		fmt.Printf("\n%s Plan still has blocking issues; run curator validate %s for details\n\n", gray("→"), planID)
	} else {
		fmt.Printf("\n%s Plan is clean; next: curator commit %s\n\n", gray("→"), planID)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveAction, "action", "", "Action ID to resolve non-interactively")
	resolveCmd.Flags().StringVar(&resolveType, "type", string(types.ConflictTargetExists), "Conflict type: target_exists or duplicate_target")
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "Strategy to apply with --action")
	resolveCmd.Flags().BoolVar(&resolveConfirmed, "confirm", false, "Confirm a REPLACE strategy")
}

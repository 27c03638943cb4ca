package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "List and restore snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := store.ListSnapshots(cmd.Context())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("\nNo snapshots.")
			return nil
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Println()
		for _, s := range snaps {
			fmt.Printf("  %s  %s  %d files  %s\n",
				cyan(s.ID),
				s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				s.FileCount,
				gray("plan "+s.PlanID))
		}
		fmt.Println()
		return nil
	},
}

var snapshotRestoreDryRun bool

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Reconcile the tree to a snapshot's manifest",
	Long: `Recreate missing files and overwrite diverged ones so the tree
matches the snapshot. Files already matching are left alone, so
re-running a restore is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := snapshot.New(store, hashing.New(cfg.Hash), cfg.Snapshots, logger)
		result, err := m.Restore(cmd.Context(), args[0], snapshotRestoreDryRun)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		if result.DryRun {
			fmt.Printf("\n%s Dry run: %d to recreate, %d to overwrite, %d unchanged\n\n",
				gray("→"), len(result.Recreated), len(result.Overwrote), len(result.Unchanged))
			return nil
		}
		fmt.Printf("\n%s Restore complete\n\n", green("✓"))
		fmt.Printf("  Recreated: %d\n", len(result.Recreated))
		fmt.Printf("  Overwrote: %d\n", len(result.Overwrote))
		fmt.Printf("  Unchanged: %d\n", len(result.Unchanged))
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotRestoreCmd.Flags().BoolVar(&snapshotRestoreDryRun, "dry-run", false, "Report differences without writing")
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <session-id>",
	Short: "Delete a session and everything derived from it",
	Long: `Remove a scan session, its file records, duplicate groups, plans,
and staging records from the database. Files on disk are untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := store.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		if err := store.PurgeSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("\n%s Session %s purged\n\n", color.GreenString("✓"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a curator repository database",
	Long: `Initialize the repository database in the current directory.

This creates:
  - .curator/ directory
  - .curator/curator.db (SQLite database)

Example:
  cd ~/documents
  curator init
  curator scan .`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.NewStorage(cmd.Context(), &storage.Config{Path: dbPath})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		_ = db.Close()

		cwd, _ := os.Getwd()
		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized curator repository\n\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(dbPath))
		fmt.Printf("  Working dir: %s\n", cyan(cwd))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("curator scan <root>..."))
		fmt.Printf("  %s\n", gray("curator analyze <session-id>"))
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

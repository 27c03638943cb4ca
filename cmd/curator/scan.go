package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/filesource"
	"github.com/curatord/curator/internal/hashing"
	"github.com/curatord/curator/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>...",
	Short: "Index one or more directory trees",
	Long: `Walk the given roots in parallel, recording metadata and a quick
content hash for every regular file. Per-file I/O errors are logged and
skipped; scanning never aborts on an unreadable file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("invalid root %s: %w", arg, err)
			}
			roots = append(roots, abs)
		}

		hasher := hashing.New(cfg.Hash)
		s := scanner.New(store, filesource.NewLocal(), hasher, cfg.Scan, logger)

		sessionID, stats, err := s.Scan(cmd.Context(), roots)
		if err != nil {
			return err
		}

		seen, failed, bytes := stats.Counts()
		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Scan complete\n\n", green("✓"))
		fmt.Printf("  Session:  %s\n", cyan(sessionID))
		fmt.Printf("  Files:    %d (%d unreadable)\n", seen, failed)
		fmt.Printf("  Bytes:    %d\n", bytes)
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

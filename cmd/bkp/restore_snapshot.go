package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raczzoli/bkp/internal/core/objects"
)

func newRestoreSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-snapshot <sha1> <out> [sub-path]",
		Short: "Restore a snapshot into an empty directory",
		Long:  "Reconstruct the files and directories recorded by a snapshot into an empty output directory, optionally restricted to a sub-path.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := objects.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
			}
			outDir := args[1]
			subPath := ""
			if len(args) == 3 {
				subPath = args[2]
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}

			if err := repo.RestoreSnapshot(id, outDir, subPath); err != nil {
				return fmt.Errorf("failed to restore snapshot: %w", err)
			}

			fmt.Printf("Restored snapshot %s into %s\n", id, outDir)
			return nil
		},
	}
}

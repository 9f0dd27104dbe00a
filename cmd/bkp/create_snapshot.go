package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-snapshot",
		Short: "Build a new snapshot from the current directory",
		Long:  "Scan the current working directory and record a snapshot of it, reusing any unchanged file's content from prior snapshots.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}

			fmt.Println("Loading file cache...")

			id, err := repo.CreateSnapshot()
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}

			fmt.Printf("Created snapshot %s\n", id)
			return nil
		},
	}
}

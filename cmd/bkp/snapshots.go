package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const defaultSnapshotLimit = 10

func newSnapshotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots [limit]",
		Short: "List snapshots reachable from HEAD",
		Long:  "Walk the snapshot chain back from HEAD, most-recent-first, printing up to limit entries (default 10).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := defaultSnapshotLimit
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid limit %q: must be a positive integer", args[0])
				}
				limit = n
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}

			entries, err := repo.ListSnapshots(limit)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("no snapshots")
				return nil
			}

			for _, entry := range entries {
				when := time.Unix(entry.Snapshot.Time, 0)
				fmt.Printf("%s  %s (%s)\n", entry.ID, entry.Snapshot.Date, humanize.Time(when))
			}

			return nil
		},
	}
}

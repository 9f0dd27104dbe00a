package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bkp",
		Short: "An incremental, content-addressed file backup tool",
		Long: `bkp snapshots a directory tree into a content-addressed object store,
deduplicating unchanged files across snapshots and restoring any snapshot
(or a subtree of it) back to disk.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newCreateSnapshotCommand(),
		newSnapshotsCommand(),
		newRestoreSnapshotCommand(),
		newShowFileCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raczzoli/bkp/internal/core/objects"
)

func newShowFileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-file <sha1>",
		Short: "Print a decoded object by its SHA-1",
		Long:  "Decode and pretty-print any object in the store: tree entries as \"<mode> <name> <sha1>\" rows, chunks objects as one blob SHA-1 per line, blobs by length, and snapshots as their four fields.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := objects.FromHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid object id %q: %w", args[0], err)
			}

			repo, err := openRepository()
			if err != nil {
				return err
			}

			typ, err := repo.ReadObjectType(id)
			if err != nil {
				return fmt.Errorf("failed to read object %s: %w", id, err)
			}

			store := repo.Store()

			switch typ {
			case objects.TypeBlob:
				blob, err := store.ReadBlob(id)
				if err != nil {
					return err
				}
				fmt.Printf("blob %d bytes\n", blob.Size())

			case objects.TypeChunks:
				chunks, err := store.ReadChunks(id)
				if err != nil {
					return err
				}
				for _, blobID := range chunks.Blobs() {
					fmt.Println(blobID)
				}

			case objects.TypeTree:
				tree, err := store.ReadTree(id)
				if err != nil {
					return err
				}
				for _, entry := range tree.Entries() {
					fmt.Printf("%06o %s %s\n", entry.Mode, entry.Name, entry.ID)
				}

			case objects.TypeSnapshot:
				snap, err := store.ReadSnapshot(id)
				if err != nil {
					return err
				}
				fmt.Printf("parent %s\n", snap.Parent)
				fmt.Printf("tree %s\n", snap.Tree)
				fmt.Printf("time %d\n", snap.Time)
				fmt.Printf("date %s\n", snap.Date)

			default:
				return fmt.Errorf("object %s has unknown type %q", id, typ)
			}

			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
	"github.com/ortholine/inlay/pkg/core"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an entry from the vault",
	Long:  `Delete permanently removes an entry from the vault and commits the removal.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		svc, _ := openService(inlay.WithMustExist(true))
		defer svc.Close()

		ctx := context.WithValue(context.Background(), core.ChangeReasonKey, commitMessage(id, "delete"))
		if err := svc.DeleteEntry(ctx, id); err != nil {
			fatal("Error deleting entry", err)
		}

		fmt.Printf("Entry deleted: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	addReasonFlags(deleteCmd)
}

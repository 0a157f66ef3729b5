package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
	"github.com/ortholine/inlay/pkg/core"
)

var (
	listJSON    bool
	filterKind  string
	filterTag   string
	filterState string
	filterGlob  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries in the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, _ := openService(inlay.WithMustExist(true))
		defer svc.Close()

		sums, err := svc.ListSummaries(context.Background(), core.Filter{
			Kind:    core.Kind(filterKind),
			Tag:     filterTag,
			Status:  core.Status(filterState),
			Pattern: filterGlob,
		})
		if err != nil {
			fatal("Error listing entries", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(sums); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, s := range sums {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Kind, s.Status, s.Title)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterKind, "kind", "", "Filter entries by kind")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter entries by tag")
	listCmd.Flags().StringVar(&filterState, "status", "", "Filter entries by status")
	listCmd.Flags().StringVar(&filterGlob, "pattern", "", "Filter entry IDs by glob (e.g. blog/**)")
}

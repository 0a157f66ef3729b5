package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay/pkg/blocks"
)

var (
	readFormat string
)

var readCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Read an entry",
	Long: `Read an entry by its ID. Prints the stored HTML by default. --format json prints
the whole entry, editor prints the block document (bootstrapped from HTML for
legacy entries) and markdown converts that document to Markdown.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		svc, _ := openService()
		defer svc.Close()
		ctx := context.Background()

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		switch readFormat {
		case "html", "":
			e, err := svc.GetEntry(ctx, id)
			if err != nil {
				fatal("Error reading entry", err)
			}
			fmt.Println(e.HTML)
		case "json":
			e, err := svc.GetEntry(ctx, id)
			if err != nil {
				fatal("Error reading entry", err)
			}
			if err := encoder.Encode(e); err != nil {
				fatal("Error encoding JSON", err)
			}
		case "editor":
			doc, err := svc.EditorDocument(ctx, id)
			if err != nil {
				fatal("Error reading entry", err)
			}
			if err := encoder.Encode(doc); err != nil {
				fatal("Error encoding JSON", err)
			}
		case "markdown", "md":
			doc, err := svc.EditorDocument(ctx, id)
			if err != nil {
				fatal("Error reading entry", err)
			}
			md, err := blocks.ToMarkdown(doc)
			if err != nil {
				fatal("Error converting to Markdown", err)
			}
			fmt.Println(md)
		default:
			fatal("Invalid flags", fmt.Errorf("unknown format %q (html, json, editor, markdown)", readFormat))
		}
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringVarP(&readFormat, "format", "f", "html", "Output format: html, json, editor, markdown")
}

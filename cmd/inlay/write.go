package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
)

var (
	writeID      string
	writeKind    string
	writeTitle   string
	writeAuthor  string
	writeStatus  string
	writeTags    []string
	writeBlocks  string
	writeHTML    string
	changeReason string
	writeType    string
	writeScope   string
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Create or update an entry",
	Long: `Create or update the entry with the given ID. The body comes from a block
document (--blocks, "-" for stdin) or from raw HTML (--html). Flags that are not
given keep the values of an existing entry.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if writeBlocks != "" && writeHTML != "" {
			fatal("Invalid flags", errors.New("--blocks and --html are mutually exclusive"))
		}

		svc, _ := openService()
		defer svc.Close()

		ctx := context.Background()
		e, err := svc.GetEntry(ctx, writeID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			fatal("Failed to read entry", err)
		}
		e.ID = writeID

		flags := cmd.Flags()
		if flags.Changed("kind") {
			e.Kind = core.Kind(writeKind)
		}
		if flags.Changed("title") {
			e.Title = writeTitle
		}
		if flags.Changed("author") {
			e.Author = writeAuthor
		}
		if flags.Changed("status") {
			e.Status = core.Status(writeStatus)
		}
		if flags.Changed("tag") {
			e.Tags = writeTags
		}

		switch {
		case writeBlocks != "":
			doc, err := readDocument(writeBlocks)
			if err != nil {
				fatal("Failed to read blocks", err)
			}
			e.Body = doc
			e.HTML = ""
		case writeHTML != "":
			e.Body = blocks.Document{}
			e.HTML = writeHTML
		}

		ctx = context.WithValue(ctx, core.ChangeReasonKey, commitMessage(writeID, "update"))
		saved, err := svc.SaveEntry(ctx, e)
		if err != nil {
			fatal("Failed to save entry", err)
		}

		fmt.Printf("Entry '%s' saved.\n", saved.ID)
	},
}

// commitMessage builds the change reason from -m, --type and --scope.
func commitMessage(id, verb string) string {
	if writeType != "" {
		subject := changeReason
		if subject == "" {
			subject = fmt.Sprintf("%s %s", verb, id)
		}
		return inlay.FormatChangeReason(writeType, writeScope, subject, "")
	}
	if changeReason != "" {
		return inlay.AppendFooter(changeReason)
	}
	scope := "content"
	if writeScope != "" {
		scope = writeScope
	}
	return inlay.FormatChangeReason(inlay.CommitTypeDocs, scope, fmt.Sprintf("%s %s", verb, id), "")
}

// readDocument decodes a block document from path, or stdin when path is "-".
func readDocument(path string) (blocks.Document, error) {
	r, closeFn, err := openInput(path)
	if err != nil {
		return blocks.Document{}, err
	}
	defer closeFn()
	return blocks.Decode(r)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func addReasonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&changeReason, "message", "m", "", "Change reason (commit subject)")
	cmd.Flags().StringVarP(&writeType, "type", "t", "", "Change type (feat, fix, docs...)")
	cmd.Flags().StringVarP(&writeScope, "scope", "s", "", "Commit scope")
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeID, "id", "", "Entry ID (path without extension)")
	writeCmd.Flags().StringVar(&writeKind, "kind", "", "Entry kind (blog, case-study, ebook, course, page)")
	writeCmd.Flags().StringVar(&writeTitle, "title", "", "Entry title")
	writeCmd.Flags().StringVar(&writeAuthor, "author", "", "Entry author")
	writeCmd.Flags().StringVar(&writeStatus, "status", "", "Entry status (draft, published)")
	writeCmd.Flags().StringSliceVar(&writeTags, "tag", nil, "Entry tags")
	writeCmd.Flags().StringVar(&writeBlocks, "blocks", "", "Block document JSON file (- for stdin)")
	writeCmd.Flags().StringVar(&writeHTML, "html", "", "Raw HTML body")
	addReasonFlags(writeCmd)
	writeCmd.MarkFlagRequired("id")
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay/pkg/blocks"
)

var (
	renderEscape   bool
	importRich     bool
	importMarkdown bool
	validateStrict bool
)

func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a block document to HTML",
	Long:  `Render reads a block document from file (or stdin) and prints its HTML.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := readDocument(inputArg(args))
		if err != nil {
			fatal("Failed to read blocks", err)
		}
		fmt.Println(blocks.NewRenderer(blocks.WithEscaping(renderEscape)).Render(doc))
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Convert HTML (or Markdown) into a block document",
	Long: `Import reads HTML from file (or stdin) and prints a block document. By default
every p, div and br boundary becomes a paragraph; --rich maps headings, lists,
quotes, tables, images and code to their own block types. --markdown reads
Markdown instead of HTML.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r, closeFn, err := openInput(inputArg(args))
		if err != nil {
			fatal("Failed to open input", err)
		}
		defer closeFn()
		src, err := io.ReadAll(r)
		if err != nil {
			fatal("Failed to read input", err)
		}

		var doc blocks.Document
		switch {
		case importMarkdown:
			doc, err = blocks.FromMarkdown(src)
		case importRich:
			doc, err = blocks.ParseHTML(string(src))
		default:
			doc = blocks.FromHTML(string(src))
		}
		if err != nil {
			fatal("Failed to convert input", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Report blocks that render degraded",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := readDocument(inputArg(args))
		if err != nil {
			fatal("Failed to read blocks", err)
		}
		warnings := blocks.Validate(doc)
		for _, w := range warnings {
			fmt.Println(w)
		}
		if len(warnings) == 0 {
			fmt.Println("ok")
			return
		}
		if validateStrict {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd, importCmd, validateCmd)
	renderCmd.Flags().BoolVar(&renderEscape, "escape", false, "HTML-escape block text")
	importCmd.Flags().BoolVar(&importRich, "rich", false, "Map HTML elements to typed blocks")
	importCmd.Flags().BoolVar(&importMarkdown, "markdown", false, "Read Markdown instead of HTML")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Exit with status 1 when there are warnings")
}

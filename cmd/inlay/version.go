package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of inlay",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inlay version %s\n", strings.TrimSpace(inlay.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

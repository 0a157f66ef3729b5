package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an inlay vault",
	Long: `Initialize a new vault in the current directory (or --vault). Unless --gitless
is given this also runs 'git init' and commits the initial .gitignore.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Failed to load config", err)
		}
		path, err := resolveVault(cfg)
		if err != nil {
			fatal("Failed to resolve vault", err)
		}

		opts := options(cfg, inlay.WithAutoInit(true))
		if !gitless && cfg.Versioning == nil {
			opts = append(opts, inlay.WithVersioning(true))
		}
		if _, err := inlay.Init(path, opts...); err != nil {
			fatal("Failed to initialize vault", err)
		}

		fmt.Println("Initialized empty inlay vault in", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ortholine/inlay"
	"github.com/ortholine/inlay/pkg/core"
)

var (
	verbose    bool
	vaultPath  string
	adapter    string
	configPath string
	gitless    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inlay",
	Short: "A content store for block documents, backed by Git",
	Long: `Inlay stores blog posts, case studies, ebooks, courses and pages as
block documents, renders them to HTML on save and keeps every change in Git.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (default: nearest vault root above the working directory)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter (fs, badger)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <vault>/inlay.yaml)")
	rootCmd.PersistentFlags().BoolVar(&gitless, "gitless", false, "Disable Git versioning")
}

// resolveVault picks the vault directory from --vault, the config file or
// the nearest vault root, in that order.
func resolveVault(cfg inlay.Config) (string, error) {
	if vaultPath != "" {
		return vaultPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := inlay.FindVaultRoot(cwd)
	if err != nil {
		root = cwd
	}
	if cfg.Vault != "" {
		if filepath.IsAbs(cfg.Vault) {
			return cfg.Vault, nil
		}
		return filepath.Join(root, cfg.Vault), nil
	}
	return root, nil
}

// loadConfig reads --config, or inlay.yaml next to the vault root.
func loadConfig() (inlay.Config, error) {
	path := configPath
	if path == "" {
		dir := vaultPath
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return inlay.Config{}, err
			}
			if dir, err = inlay.FindVaultRoot(cwd); err != nil {
				dir = cwd
			}
		}
		path = filepath.Join(dir, "inlay.yaml")
	}
	return inlay.LoadConfig(path)
}

// options merges the config file with the command line; flags win.
func options(cfg inlay.Config, extra ...inlay.Option) []inlay.Option {
	opts := cfg.Options()
	if adapter != "" {
		opts = append(opts, inlay.WithAdapter(adapter))
	}
	if gitless {
		opts = append(opts, inlay.WithVersioning(false))
	}
	opts = append(opts, inlay.WithLogger(slog.Default()))
	return append(opts, extra...)
}

// openService loads the configuration and opens the vault.
func openService(extra ...inlay.Option) (*core.Service, inlay.Config) {
	cfg, err := loadConfig()
	if err != nil {
		fatal("Failed to load config", err)
	}
	path, err := resolveVault(cfg)
	if err != nil {
		fatal("Failed to resolve vault", err)
	}
	svc, err := inlay.New(path, options(cfg, extra...)...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return svc, cfg
}

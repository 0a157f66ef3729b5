package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	entrysource "github.com/ortholine/inlay/pkg/adapters/lifecycle"
	"github.com/ortholine/inlay/pkg/core"
	"github.com/ortholine/inlay/pkg/httpapi"
)

const defaultAddr = "127.0.0.1:8080"

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the entry API over HTTP",
	Long: `Serve exposes the vault as a JSON API for the admin panel and the public site.
The listen address and CORS origins come from inlay.yaml (server.address,
server.cors_origins) unless --addr is given. With --watch, edits made to the
vault outside the API are logged as they happen.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, cfg := openService()
		defer svc.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Address
		}
		if addr == "" {
			addr = defaultAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveWatch {
			watchVault(ctx, svc)
		}

		srv := httpapi.NewServer(svc,
			httpapi.WithLogger(slog.Default()),
			httpapi.WithCORSOrigins(cfg.Server.CORSOrigins...),
		)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			fatal("Server failed", err)
		}
	},
}

// watchVault logs offline changes found at startup and then every live change.
func watchVault(ctx context.Context, svc *core.Service) {
	logger := slog.Default()

	changes, err := svc.Reconcile(ctx)
	switch {
	case errors.Is(err, core.ErrUnsupported):
	case err != nil:
		logger.Warn("reconcile failed", "error", err)
	default:
		for _, e := range changes {
			logger.Info("offline change", "event", e.String())
		}
	}

	events, err := svc.Watch(ctx, "**")
	if err != nil {
		logger.Warn("watch unavailable", "error", err)
		return
	}
	src := entrysource.NewSource(events)
	if err := src.Start(ctx); err != nil {
		logger.Warn("watch unavailable", "error", err)
		return
	}
	go func() {
		for e := range src.Events() {
			logger.Info("entry changed", "event", e.String())
		}
	}()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default "+defaultAddr+")")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Log changes made to the vault outside the API")
}

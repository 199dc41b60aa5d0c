package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/signerd/internal/httpapi"
	"github.com/mrz1836/signerd/internal/server"
	"github.com/mrz1836/signerd/internal/zkp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build and start the signer server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	server.Version = fmt.Sprintf("%s (%s)", build.Version, build.Commit)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	az := newInteractiveAuthorizer(ctx, cfg)

	srv, err := server.Build(ctx, cfg, az, logger, zkp.StubProver{})
	if err != nil {
		return err
	}

	if logger != nil {
		logger.DebugAttrs("signer server listening", slog.String("addr", cfg.ListenAddr))
	}

	router := httpapi.NewRouter(srv, cfg)
	return srv.Start(ctx, router)
}

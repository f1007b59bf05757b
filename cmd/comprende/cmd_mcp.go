package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/comprende/internal/app"
	"github.com/felixgeelhaar/comprende/internal/config"
	mcpserver "github.com/felixgeelhaar/comprende/internal/mcp"
)

// cmdMCP serves the exercise tools over MCP
func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	addr := fs.String("http", "", "serve over HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir, err := config.EnsureComprendeDir()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// jobs run in-process; the tools never submit to the queue
	a, err := app.New(ctx, app.AppConfig{Config: withoutQueue(cfg), Dir: dir, Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Service:     a.Service,
		DefaultTier: cfg.Exercises.DefaultTier,
		Version:     Version,
	})

	if *addr != "" {
		return srv.ServeHTTP(ctx, *addr)
	}
	return srv.ServeStdio(ctx)
}

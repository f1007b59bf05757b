package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/comprende/internal/app"
	"github.com/felixgeelhaar/comprende/internal/config"
	"github.com/felixgeelhaar/comprende/internal/domain"
	"github.com/felixgeelhaar/comprende/internal/queue"
)

// cmdWorker consumes generation jobs from RabbitMQ until interrupted
func cmdWorker(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	concurrency := fs.Int("concurrency", 0, "jobs processed in parallel (default: from config)")
	fromEnv := fs.Bool("env", false, "read settings from environment variables")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*fromEnv)
	if err != nil {
		return err
	}
	if !cfg.Queue.Enabled {
		return errors.New("queue is disabled (set queue.enabled and rabbitmq_url in secrets.yaml)")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Daemon.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := config.EnsureComprendeDir()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, app.AppConfig{Config: cfg, Dir: dir, Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	workers := cfg.Queue.Concurrency
	if *concurrency > 0 {
		workers = *concurrency
	}
	consumer := queue.NewConsumer(a.Queue, func(ctx context.Context, msg *queue.GenerateJob) (*domain.Job, error) {
		return a.Service.Run(ctx, msg.JobID)
	}, queue.ConsumerConfig{Workers: workers})

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	slog.Info("worker started", "annotator", a.Service.Annotator().Name(), "storage", cfg.Storage.Driver, "workers", workers)

	<-ctx.Done()
	slog.Info("shutting down worker")
	consumer.Stop()
	return nil
}

// loadConfig reads ~/.comprende/config.yaml, or the environment for
// container deployments
func loadConfig(fromEnv bool) (*config.LocalConfig, error) {
	if !fromEnv {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	env, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	cfg := config.DefaultLocalConfig()
	env.Apply(cfg)
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

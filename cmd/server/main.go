package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/events"
	"pdfscan/internal/extract"
	"pdfscan/internal/jobs"
	"pdfscan/internal/ledger"
	"pdfscan/internal/logger"
	"pdfscan/internal/metrics"
	"pdfscan/internal/organizer"
	"pdfscan/internal/pipeline"
	"pdfscan/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	yamlCfg, err := config.LoadYAMLFile(cfg.ConfigFile)
	if err != nil {
		slog.Error("failed to load config file", "path", cfg.ConfigFile, "error", err)
		os.Exit(1)
	}
	cfg.ApplyYAML(yamlCfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations completed")

	if yamlCfg != nil {
		added, err := database.SeedKeywords(ctx, yamlCfg.SeedKeywords())
		if err != nil {
			slog.Error("failed to seed keywords", "error", err)
			os.Exit(1)
		}
		if added > 0 {
			slog.Info("seeded keywords from config", "added", added)
		}
	}

	metrics.Init(database)

	extractor, err := extract.NewFromNames(cfg.ExtractEngines)
	if err != nil {
		slog.Error("failed to set up extraction", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Config{
		SourceDir:  cfg.SourceDir,
		DestDir:    cfg.DestDir,
		WindowSize: cfg.ContextWindow,
	}, extractor, ledger.New(database, cfg.Dedup()), organizer.New())

	if cfg.KafkaEnabled() {
		publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		p.SetNotifier(publisher)
		slog.Info("publishing pipeline events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	runner := jobs.NewRunner(p, cfg.RunSchedule)
	if err := runner.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer runner.Stop()

	srv := server.New(cfg)
	srv.RegisterRoutes(ctx, database, runner)

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()
	slog.Info("server started", "addr", cfg.ServerAddr, "source", cfg.SourceDir, "dest", cfg.DestDir)

	<-ctx.Done()

	slog.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited")
}

// Command pdfscan runs the PDF keyword pipeline and manages its data from the
// command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/logger"
)

const usage = `Usage: pdfscan <command> [flags]

Commands:
  run                 convert, scan and move every PDF in the source directory
  process <file>...   process the given PDF files without a directory snapshot
  import <file>       add keywords from a text file, one per line ("-" for stdin)
  search              list stored matches (-keyword, -file)
  migrate             apply database migrations

Configuration is read from the environment, .env and config.yaml.
`

// exitFailures is returned when a run finished but some files failed.
const exitFailures = 2

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	var (
		code int
		err  error
	)
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "run":
		code, err = runCmd(ctx, cfg, args)
	case "process":
		code, err = processCmd(ctx, cfg, args)
	case "import":
		err = importCmd(ctx, cfg, args)
	case "search":
		err = searchCmd(ctx, cfg, args)
	case "migrate":
		err = migrateCmd(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			color.Red("pdfscan %s: %v", cmd, err)
		}
		os.Exit(1)
	}
	os.Exit(code)
}

// openDB connects and migrates the database.
func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}

// loadConfig applies the YAML file and validates the result.
func loadConfig(cfg *config.Config) (*config.YAMLConfig, error) {
	yamlCfg, err := config.LoadYAMLFile(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.ConfigFile, err)
	}
	cfg.ApplyYAML(yamlCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return yamlCfg, nil
}

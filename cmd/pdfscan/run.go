package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"pdfscan/internal/config"
	"pdfscan/internal/events"
	"pdfscan/internal/extract"
	"pdfscan/internal/ledger"
	"pdfscan/internal/organizer"
	"pdfscan/internal/pipeline"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// pipelineFlags are shared by run and process.
type pipelineFlags struct {
	source  string
	dest    string
	window  int
	dedup   string
	quiet   bool
	engines string
}

func (f *pipelineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.source, "source", "", "source directory (default SOURCE_DIR)")
	fs.StringVar(&f.dest, "dest", "", "destination directory (default DEST_DIR)")
	fs.IntVar(&f.window, "window", -1, "context window in characters (default CONTEXT_WINDOW)")
	fs.StringVar(&f.dedup, "dedup", "", "match dedup policy: skip-existing or always-insert")
	fs.StringVar(&f.engines, "engines", "", "comma-separated extraction engines")
	fs.BoolVar(&f.quiet, "quiet", false, "disable the progress bar")
}

// apply overrides cfg with explicitly set flags.
func (f *pipelineFlags) apply(cfg *config.Config) {
	if f.source != "" {
		cfg.SourceDir = f.source
	}
	if f.dest != "" {
		cfg.DestDir = f.dest
	}
	if f.window >= 0 {
		cfg.ContextWindow = f.window
	}
	if f.dedup != "" {
		cfg.DedupPolicy = f.dedup
	}
	if f.engines != "" {
		var engines []string
		for _, name := range strings.Split(f.engines, ",") {
			if name = strings.TrimSpace(name); name != "" {
				engines = append(engines, name)
			}
		}
		cfg.ExtractEngines = engines
	}
}

// buildPipeline wires the pipeline to the database, extraction chain and
// organizer. The returned cleanup closes what was opened.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	yamlCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){database.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if yamlCfg != nil {
		if _, err := database.SeedKeywords(ctx, yamlCfg.SeedKeywords()); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("seed keywords: %w", err)
		}
	}

	extractor, err := extract.NewFromNames(cfg.ExtractEngines)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Config{
		SourceDir:  cfg.SourceDir,
		DestDir:    cfg.DestDir,
		WindowSize: cfg.ContextWindow,
	}, extractor, ledger.New(database, cfg.Dedup()), organizer.New())

	if cfg.KafkaEnabled() {
		publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, func() { _ = publisher.Close() })
		p.SetNotifier(publisher)
	}

	return p, cleanup, nil
}

func runCmd(ctx context.Context, cfg *config.Config, args []string) (int, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var pf pipelineFlags
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	pf.apply(cfg)

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	var bar *progressbar.ProgressBar
	if !pf.quiet {
		p.OnSnapshot = func(files []string) {
			bar = getProgressBar(len(files), "Processing PDFs...")
		}
		p.OnFile = func(r *pipeline.FileReport) {
			if bar != nil {
				bar.Describe(color.BlueString("Processing %s", r.File))
				_ = bar.Add(1)
			}
		}
	}

	color.Blue("Scanning %s -> %s", cfg.SourceDir, cfg.DestDir)
	stats, err := p.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if stats == nil {
		return 0, err
	}

	printStats(stats)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			color.Yellow("Run interrupted")
			return 1, nil
		}
		return 0, err
	}
	if stats.Failed > 0 {
		return exitFailures, nil
	}
	return 0, nil
}

func printStats(stats *pipeline.Stats) {
	elapsed := stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond)
	color.Green("✓ %d of %d files processed, %d moved, %d matches in %s",
		stats.Processed, stats.Files, stats.Moved, stats.Matches, elapsed)
	if stats.Failed == 0 {
		return
	}
	color.Red("✗ %d files failed", stats.Failed)
	for _, f := range stats.Failures {
		fmt.Printf("  %s %s: %v\n", color.RedString(f.Stage()), f.File, f.Err)
	}
}

func processCmd(ctx context.Context, cfg *config.Config, args []string) (int, error) {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	var pf pipelineFlags
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() == 0 {
		return 0, errors.New("no files given")
	}
	pf.apply(cfg)

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	failed, err := processFiles(ctx, p, fs.Args(), os.Stdout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			color.Yellow("Processing interrupted")
			return 1, nil
		}
		return 0, err
	}
	if failed > 0 {
		return exitFailures, nil
	}
	return 0, nil
}

// fileProcessor handles one document at a time.
type fileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.FileReport, error)
}

// processFiles runs each path through p and reports on w. A failed file is
// counted and the loop moves on; only batch-level errors and cancellation
// stop it.
func processFiles(ctx context.Context, p fileProcessor, paths []string, w io.Writer) (int, error) {
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		report, err := p.ProcessFile(ctx, path)
		if report == nil {
			return failed, err
		}
		if report.Failure != nil {
			failed++
			color.New(color.FgRed).Fprintf(w, "✗ %s: %s: %v\n", report.File, report.Failure.Stage(), report.Failure.Err)
			continue
		}
		color.New(color.FgGreen).Fprintf(w, "✓ %s: %d matches (%d stored), moved to %s\n",
			report.File, report.Matches, report.Inserted, report.DestPath)
	}
	return failed, nil
}

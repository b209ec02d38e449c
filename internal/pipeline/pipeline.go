// Package pipeline drives one batch run: extract each PDF in the source
// directory, write its text next to it, scan for keywords, record the result
// in the ledger and move the PDF to the destination directory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfscan/internal/extract"
	"pdfscan/internal/ledger"
	"pdfscan/internal/metrics"
	"pdfscan/internal/models"
	"pdfscan/internal/scanner"
)

// Extractor turns a document into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*extract.Result, error)
}

// Mover relocates a processed document.
type Mover interface {
	Move(sourcePath, destDir string) (string, error)
}

// Notifier is told about every finished file and run.
type Notifier interface {
	FileFinished(ctx context.Context, report *FileReport)
	RunFinished(ctx context.Context, stats *Stats)
}

// Config holds the directories and window size of a pipeline.
type Config struct {
	SourceDir  string
	DestDir    string
	WindowSize int
}

// FileReport describes what happened to one file.
type FileReport struct {
	File       string
	SourcePath string
	TextPath   string
	DestPath   string
	Engine     string
	Status     string
	Matches    int
	Inserted   int
	Skipped    int
	Duration   time.Duration
	Failure    *Failure
}

// Moved reports whether the file reached the destination directory.
func (r *FileReport) Moved() bool {
	return r.DestPath != ""
}

// Stats aggregates one run.
type Stats struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	Processed  int
	Failed     int
	Moved      int
	Matches    int
	Failures   []*Failure
}

func (s *Stats) add(r *FileReport) {
	s.Files++
	s.Matches += r.Matches
	if r.Status == models.StatusProcessed {
		s.Processed++
	}
	if r.Moved() {
		s.Moved++
	}
	if r.Failure != nil {
		s.Failed++
		s.Failures = append(s.Failures, r.Failure)
	}
}

// Pipeline processes source directories. It is not safe for concurrent runs;
// callers serialize them.
type Pipeline struct {
	cfg       Config
	extractor Extractor
	ledger    *ledger.Ledger
	mover     Mover
	notifier  Notifier
	logger    *slog.Logger

	// OnSnapshot is called with the files a run is about to process.
	OnSnapshot func(files []string)
	// OnFile is called after each file.
	OnFile func(report *FileReport)
}

// New creates a pipeline. A negative window is treated as zero.
func New(cfg Config, extractor Extractor, l *ledger.Ledger, mover Mover) *Pipeline {
	if cfg.WindowSize < 0 {
		cfg.WindowSize = 0
	}
	return &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		ledger:    l,
		mover:     mover,
		logger:    slog.Default().With("component", "pipeline"),
	}
}

// SetNotifier installs a notifier for file and run events.
func (p *Pipeline) SetNotifier(n Notifier) {
	p.notifier = n
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Snapshot lists the regular files in dir with a .pdf extension, any case,
// in name order.
func Snapshot(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// TextPath returns the sibling .txt path for a document.
func TextPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
}

// Run processes every PDF present in the source directory when the run
// starts. Per-file failures are collected in the returned Stats; the error is
// non-nil only when the run could not start (wrapping ErrBatch) or ctx was
// cancelled between files.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{RunID: uuid.New(), StartedAt: time.Now()}

	files, err := Snapshot(p.cfg.SourceDir)
	if err != nil {
		return p.abort(stats, fmt.Errorf("%w: read source directory: %w", ErrBatch, err))
	}

	sc, err := p.prepare(ctx)
	if err != nil {
		return p.abort(stats, err)
	}

	p.logger.Info("run started",
		"run_id", stats.RunID,
		"files", len(files),
		"keywords", len(sc.Keywords()),
	)
	if p.OnSnapshot != nil {
		p.OnSnapshot(files)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			p.finish(ctx, stats, err)
			return stats, err
		}
		p.add(ctx, stats, p.processFile(ctx, sc, path))
	}

	p.finish(ctx, stats, nil)
	return stats, nil
}

// ProcessFile runs a single document through the pipeline. The returned error
// is the report's *Failure, if any.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*FileReport, error) {
	sc, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	report := p.processFile(ctx, sc, path)
	if p.OnFile != nil {
		p.OnFile(report)
	}
	if p.notifier != nil {
		p.notifier.FileFinished(ctx, report)
	}
	if report.Failure != nil {
		return report, report.Failure
	}
	return report, nil
}

// prepare reads the keyword list and makes sure the destination exists.
func (p *Pipeline) prepare(ctx context.Context) (*scanner.Scanner, error) {
	keywords, err := p.ledger.KeywordTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read keywords: %w", ErrBatch, err)
	}
	if err := os.MkdirAll(p.cfg.DestDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create destination directory: %w", ErrBatch, err)
	}
	return scanner.New(keywords), nil
}

func (p *Pipeline) add(ctx context.Context, stats *Stats, report *FileReport) {
	stats.add(report)
	if p.OnFile != nil {
		p.OnFile(report)
	}
	if p.notifier != nil {
		p.notifier.FileFinished(ctx, report)
	}
}

func (p *Pipeline) abort(stats *Stats, err error) (*Stats, error) {
	p.logger.Error("run aborted", "run_id", stats.RunID, "error", err)
	stats.FinishedAt = time.Now()
	metrics.RecordRun(err, stats.FinishedAt.Sub(stats.StartedAt))
	return nil, err
}

func (p *Pipeline) finish(ctx context.Context, stats *Stats, err error) {
	stats.FinishedAt = time.Now()
	metrics.RecordRun(err, stats.FinishedAt.Sub(stats.StartedAt))

	p.logger.Info("run finished",
		"run_id", stats.RunID,
		"files", stats.Files,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"moved", stats.Moved,
		"matches", stats.Matches,
		"duration", stats.FinishedAt.Sub(stats.StartedAt),
	)
	if p.notifier != nil {
		p.notifier.RunFinished(context.WithoutCancel(ctx), stats)
	}
}

func (p *Pipeline) processFile(ctx context.Context, sc *scanner.Scanner, path string) *FileReport {
	start := time.Now()
	report := &FileReport{
		File:       filepath.Base(path),
		SourcePath: path,
	}

	p.runFile(ctx, sc, report)

	report.Duration = time.Since(start)
	outcome := report.Status
	if report.Failure != nil {
		outcome = report.Failure.Stage()
	}
	metrics.RecordFile(outcome, report.Engine, report.Matches, report.Duration)
	return report
}

func (p *Pipeline) runFile(ctx context.Context, sc *scanner.Scanner, report *FileReport) {
	log := p.logger.With("file", report.File)

	absSource, err := filepath.Abs(report.SourcePath)
	if err != nil {
		absSource = report.SourcePath
	}

	result, err := p.extractor.Extract(ctx, report.SourcePath)
	if err != nil {
		report.Failure = &Failure{Kind: ErrExtraction, File: report.File, Err: err}
		log.Warn("extraction failed", "error", err)
		if markErr := p.ledger.MarkFailed(ctx, report.File, absSource); markErr != nil {
			log.Error("failed to record extraction failure", "error", markErr)
			return
		}
		report.Status = models.StatusFailed
		return
	}
	report.Engine = result.Engine
	result.EnsureUTF8()

	textPath := TextPath(report.SourcePath)
	if err := os.WriteFile(textPath, []byte(result.Text), 0o644); err != nil {
		report.Failure = &Failure{Kind: ErrWrite, File: report.File, Err: err}
		log.Error("failed to write text file", "path", textPath, "error", err)
		return
	}
	report.TextPath = textPath

	matches := collectMatches(sc, result, p.cfg.WindowSize)
	report.Matches = matches.Count()

	absText, err := filepath.Abs(textPath)
	if err != nil {
		absText = textPath
	}
	summary, err := p.ledger.RecordRun(ctx, report.File, absText, matches)
	if err != nil {
		report.Failure = &Failure{Kind: ErrPersistence, File: report.File, Err: err}
		log.Error("failed to record matches", "error", err)
		return
	}
	report.Status = models.StatusProcessed
	report.Inserted = summary.Inserted
	report.Skipped = summary.Skipped

	dest, err := p.mover.Move(report.SourcePath, p.cfg.DestDir)
	if err != nil {
		report.Failure = &Failure{Kind: ErrMove, File: report.File, Err: err}
		log.Error("failed to move file", "dest_dir", p.cfg.DestDir, "error", err)
		return
	}
	report.DestPath = dest

	log.Info("file processed",
		"engine", report.Engine,
		"matches", report.Matches,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"dest", dest,
	)
}

// collectMatches scans the extracted text and attributes page numbers when
// the engine reported page boundaries.
func collectMatches(sc *scanner.Scanner, result *extract.Result, window int) ledger.Matches {
	located := sc.Locate(result.Text, window)
	matches := make(ledger.Matches, len(located))
	for keyword, occs := range located {
		hits := make([]ledger.Hit, len(occs))
		for i, occ := range occs {
			hits[i] = ledger.Hit{Content: occ.Context}
			if page, ok := result.PageAt(occ.Offset); ok {
				hits[i].PageNumber = &page
			}
		}
		matches[keyword] = hits
	}
	return matches
}

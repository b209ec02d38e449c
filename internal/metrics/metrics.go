package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pdfscan/internal/models"
)

var (
	keywordMatchesDesc = prometheus.NewDesc(
		"pdfscan_keyword_matches",
		"Stored match count by keyword",
		[]string{"keyword"},
		nil,
	)
	ledgerFilesDesc = prometheus.NewDesc(
		"pdfscan_ledger_files",
		"Ledger rows by processing status",
		[]string{"status"},
		nil,
	)
)

var (
	filesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfscan_files_total",
		Help: "Files handled by the pipeline by outcome",
	}, []string{"outcome"})

	extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfscan_extractions_total",
		Help: "Successful extractions by engine",
	}, []string{"engine"})

	matchesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdfscan_matches_found_total",
		Help: "Keyword occurrences found by the scanner",
	})

	fileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfscan_file_duration_seconds",
		Help:    "Time spent on one file from extraction to move",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfscan_runs_total",
		Help: "Batch runs by result",
	}, []string{"result"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdfscan_run_duration_seconds",
		Help:    "Duration of a full batch run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Source supplies the ledger totals exported on each scrape.
type Source interface {
	KeywordMatchCounts(ctx context.Context) ([]models.KeywordStat, error)
	FileStatusCounts(ctx context.Context) (map[string]int64, error)
}

// LedgerCollector is a custom Prometheus collector that reads match and file
// totals from the store on each scrape.
type LedgerCollector struct {
	source Source
}

// NewLedgerCollector creates a collector over source.
func NewLedgerCollector(source Source) *LedgerCollector {
	return &LedgerCollector{source: source}
}

// Describe sends the metric descriptors to the channel.
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keywordMatchesDesc
	ch <- ledgerFilesDesc
}

// Collect queries the store and emits one gauge per keyword and per status.
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()

	stats, err := c.source.KeywordMatchCounts(ctx)
	if err != nil {
		slog.Error("failed to collect keyword match metrics", "error", err)
	} else {
		for _, s := range stats {
			ch <- prometheus.MustNewConstMetric(
				keywordMatchesDesc,
				prometheus.GaugeValue,
				float64(s.Matches),
				s.Keyword,
			)
		}
	}

	counts, err := c.source.FileStatusCounts(ctx)
	if err != nil {
		slog.Error("failed to collect ledger file metrics", "error", err)
		return
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(
			ledgerFilesDesc,
			prometheus.GaugeValue,
			float64(n),
			status,
		)
	}
}

var initOnce sync.Once

// Init registers the pipeline metrics and, when source is non-nil, the ledger
// collector. Must be called once at startup.
func Init(source Source) {
	initOnce.Do(func() {
		prometheus.MustRegister(filesTotal, extractionsTotal, matchesFound, fileDuration, runsTotal, runDuration)
		if source != nil {
			prometheus.MustRegister(NewLedgerCollector(source))
		}
	})
}

// RecordFile records the outcome of one file. engine is empty when extraction failed.
func RecordFile(outcome, engine string, matches int, d time.Duration) {
	filesTotal.WithLabelValues(outcome).Inc()
	if engine != "" {
		extractionsTotal.WithLabelValues(engine).Inc()
	}
	matchesFound.Add(float64(matches))
	fileDuration.Observe(d.Seconds())
}

// RecordRun records a finished batch run.
func RecordRun(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	runsTotal.WithLabelValues(result).Inc()
	runDuration.Observe(d.Seconds())
}

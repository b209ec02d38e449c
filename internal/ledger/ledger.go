package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"pdfscan/internal/models"
)

// DedupPolicy decides what happens when matches already exist for a
// (keyword, file) pair.
type DedupPolicy string

const (
	// SkipExisting leaves a (keyword, file) pair alone if it has any match.
	SkipExisting DedupPolicy = "skip-existing"
	// AlwaysInsert appends matches on every run.
	AlwaysInsert DedupPolicy = "always-insert"
)

// ParseDedupPolicy parses a policy name; "" selects SkipExisting.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(s) {
	case "", SkipExisting:
		return SkipExisting, nil
	case AlwaysInsert:
		return AlwaysInsert, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q", s)
}

// Hit is one context to persist for a keyword.
type Hit struct {
	Content    string
	PageNumber *int
}

// Matches maps keyword text to the hits found for it in one file.
type Matches map[string][]Hit

// Count returns the total number of hits.
func (m Matches) Count() int {
	n := 0
	for _, hits := range m {
		n += len(hits)
	}
	return n
}

// RunSummary reports what RecordRun wrote.
type RunSummary struct {
	Inserted int
	Skipped  int
}

// Ledger writes processing results through a Store.
type Ledger struct {
	store  Store
	policy DedupPolicy
	logger *slog.Logger
}

// New creates a ledger with a fixed dedup policy.
func New(store Store, policy DedupPolicy) *Ledger {
	if policy == "" {
		policy = SkipExisting
	}
	return &Ledger{
		store:  store,
		policy: policy,
		logger: slog.Default().With("component", "ledger"),
	}
}

// Policy returns the configured dedup policy.
func (l *Ledger) Policy() DedupPolicy {
	return l.policy
}

// RecordRun marks fileName processed and stores its matches in a single
// transaction. On error nothing is written.
func (l *Ledger) RecordRun(ctx context.Context, fileName, filePath string, matches Matches) (RunSummary, error) {
	var summary RunSummary

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.UpsertProcessedFile(ctx, fileName, filePath, models.StatusProcessed); err != nil {
		return RunSummary{}, fmt.Errorf("upsert processed file %s: %w", fileName, err)
	}

	keywords := make([]string, 0, len(matches))
	for k := range matches {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	for _, keywordText := range keywords {
		hits := matches[keywordText]
		if len(hits) == 0 {
			continue
		}

		keyword, err := tx.GetOrCreateKeyword(ctx, keywordText)
		if err != nil {
			return RunSummary{}, fmt.Errorf("resolve keyword %q: %w", keywordText, err)
		}

		if l.policy == SkipExisting {
			existing, err := tx.CountMatches(ctx, keyword.ID, fileName)
			if err != nil {
				return RunSummary{}, fmt.Errorf("count matches for %q: %w", keywordText, err)
			}
			if existing > 0 {
				l.logger.Debug("matches already recorded, skipping",
					"file", fileName,
					"keyword", keywordText,
					"existing", existing,
				)
				summary.Skipped += len(hits)
				continue
			}
		}

		for _, hit := range hits {
			match := &models.KeywordMatch{
				KeywordID:  keyword.ID,
				FileName:   fileName,
				PageNumber: hit.PageNumber,
				Content:    hit.Content,
			}
			if err := tx.InsertMatch(ctx, match); err != nil {
				return RunSummary{}, fmt.Errorf("insert match for %q: %w", keywordText, err)
			}
			summary.Inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return RunSummary{}, fmt.Errorf("commit: %w", err)
	}
	return summary, nil
}

// MarkFailed records that no text could be extracted from fileName. Existing
// matches for the file are left in place.
func (l *Ledger) MarkFailed(ctx context.Context, fileName, filePath string) error {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.UpsertProcessedFile(ctx, fileName, filePath, models.StatusFailed); err != nil {
		return fmt.Errorf("upsert processed file %s: %w", fileName, err)
	}
	return tx.Commit(ctx)
}

// KeywordTexts returns the text of every keyword, for configuring a scanner.
func (l *Ledger) KeywordTexts(ctx context.Context) ([]string, error) {
	keywords, err := l.store.ListKeywords(ctx)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(keywords))
	for i, k := range keywords {
		texts[i] = k.Keyword
	}
	return texts, nil
}

// Package ledger records per-file processing status and keyword matches,
// one transaction per file.
package ledger

import (
	"context"

	"github.com/google/uuid"

	"pdfscan/internal/models"
)

// Store is the persistence port the ledger writes through.
type Store interface {
	// Begin starts a unit of work. Nothing written through the returned Tx is
	// visible to readers until Commit.
	Begin(ctx context.Context) (Tx, error)

	ListKeywords(ctx context.Context) ([]models.Keyword, error)
}

// Tx is one unit of work against the store. Rollback after Commit is a no-op.
type Tx interface {
	UpsertProcessedFile(ctx context.Context, fileName, filePath, status string) error
	// GetOrCreateKeyword resolves a keyword by exact text, creating it if absent.
	GetOrCreateKeyword(ctx context.Context, text string) (*models.Keyword, error)
	CountMatches(ctx context.Context, keywordID uuid.UUID, fileName string) (int, error)
	InsertMatch(ctx context.Context, match *models.KeywordMatch) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

package db

import (
	"context"

	"github.com/google/uuid"

	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
)

// Store is everything the web layer and CLI need from persistence.
type Store interface {
	ledger.Store

	CreateKeyword(ctx context.Context, keyword *models.Keyword) error
	GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error)
	DeleteKeyword(ctx context.Context, id uuid.UUID) error
	ImportKeywords(ctx context.Context, keywords []string) (*models.KeywordImportResult, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.KeywordMatch, error)
	ListProcessedFiles(ctx context.Context) ([]models.ProcessedFile, error)
	KeywordMatchCounts(ctx context.Context) ([]models.KeywordStat, error)
	FileStatusCounts(ctx context.Context) (map[string]int64, error)
	Ping(ctx context.Context) error
}

var _ Store = (*DB)(nil)

package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// Keyword errors
	ErrKeywordNotFound  = errors.New("keyword not found")
	ErrDuplicateKeyword = errors.New("keyword already exists")
	ErrEmptyKeyword     = errors.New("keyword is empty")

	// Processed file errors
	ErrFileNotFound  = errors.New("processed file not found")
	ErrInvalidStatus = errors.New("invalid processing status")
)

// PostgreSQL error codes the store maps to sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

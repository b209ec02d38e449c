package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pdfscan/internal/ledger"
	"pdfscan/internal/models"
)

// Begin starts a ledger transaction.
func (d *DB) Begin(ctx context.Context) (ledger.Tx, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ledgerTx{tx: tx}, nil
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) UpsertProcessedFile(ctx context.Context, fileName, filePath, status string) error {
	if !models.ValidStatus(status) {
		return ErrInvalidStatus
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO processed_files (file_name, file_path, status, processed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (file_name) DO UPDATE
		SET file_path = EXCLUDED.file_path, status = EXCLUDED.status, processed_at = NOW()
	`, fileName, filePath, status)
	return err
}

func (t *ledgerTx) GetOrCreateKeyword(ctx context.Context, text string) (*models.Keyword, error) {
	var k models.Keyword
	err := scanKeyword(t.tx.QueryRow(ctx, `
		INSERT INTO keywords (keyword)
		VALUES ($1)
		ON CONFLICT (keyword) DO UPDATE SET keyword = EXCLUDED.keyword
		RETURNING `+keywordColumns,
		text,
	), &k)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (t *ledgerTx) CountMatches(ctx context.Context, keywordID uuid.UUID, fileName string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM keyword_matches
		WHERE keyword_id = $1 AND file_name = $2
	`, keywordID, fileName).Scan(&n)
	return n, err
}

func (t *ledgerTx) InsertMatch(ctx context.Context, match *models.KeywordMatch) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO keyword_matches (keyword_id, file_name, page_number, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, match.KeywordID, match.FileName, match.PageNumber, match.Content).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == codeForeignKeyViolation {
			return ErrKeywordNotFound
		}
		return err
	}
	return nil
}

func (t *ledgerTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *ledgerTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

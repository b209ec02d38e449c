package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pdfscan/internal/models"
)

const keywordColumns = `id, keyword, description, created_at`

func scanKeyword(row pgx.Row, k *models.Keyword) error {
	return row.Scan(&k.ID, &k.Keyword, &k.Description, &k.CreatedAt)
}

// CreateKeyword inserts a new keyword. The text is trimmed first.
func (d *DB) CreateKeyword(ctx context.Context, keyword *models.Keyword) error {
	keyword.Keyword = strings.TrimSpace(keyword.Keyword)
	if keyword.Keyword == "" {
		return ErrEmptyKeyword
	}

	err := scanKeyword(d.Pool.QueryRow(ctx, `
		INSERT INTO keywords (keyword, description)
		VALUES ($1, $2)
		RETURNING `+keywordColumns,
		keyword.Keyword, keyword.Description,
	), keyword)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return ErrDuplicateKeyword
		}
		return err
	}
	return nil
}

// GetKeywordByID retrieves a keyword by its ID.
func (d *DB) GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error) {
	var k models.Keyword
	err := scanKeyword(d.Pool.QueryRow(ctx, `SELECT `+keywordColumns+` FROM keywords WHERE id = $1`, id), &k)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeywordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// GetKeywordByText retrieves a keyword by exact text.
func (d *DB) GetKeywordByText(ctx context.Context, text string) (*models.Keyword, error) {
	var k models.Keyword
	err := scanKeyword(d.Pool.QueryRow(ctx, `SELECT `+keywordColumns+` FROM keywords WHERE keyword = $1`, text), &k)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeywordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ListKeywords returns all keywords ordered by text.
func (d *DB) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+keywordColumns+` FROM keywords ORDER BY keyword`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := scanKeyword(rows, &k); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// DeleteKeyword removes a keyword; its matches go with it.
func (d *DB) DeleteKeyword(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}
	return nil
}

// ImportKeywords adds every keyword not already present. Existing keywords
// are left untouched.
func (d *DB) ImportKeywords(ctx context.Context, keywords []string) (*models.KeywordImportResult, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &models.KeywordImportResult{Added: []string{}, Existing: []string{}}
	seen := make(map[string]struct{}, len(keywords))
	for _, text := range keywords {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}

		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO keywords (keyword)
			VALUES ($1)
			ON CONFLICT (keyword) DO NOTHING
			RETURNING id
		`, text).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			result.Existing = append(result.Existing, text)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, text)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// SeedKeywords imports keywords with descriptions, skipping ones that exist.
func (d *DB) SeedKeywords(ctx context.Context, keywords []models.Keyword) (int, error) {
	added := 0
	for _, k := range keywords {
		text := strings.TrimSpace(k.Keyword)
		if text == "" {
			continue
		}
		result, err := d.Pool.Exec(ctx, `
			INSERT INTO keywords (keyword, description)
			VALUES ($1, $2)
			ON CONFLICT (keyword) DO NOTHING
		`, text, k.Description)
		if err != nil {
			return added, err
		}
		added += int(result.RowsAffected())
	}
	return added, nil
}

// KeywordMatchCounts returns the number of stored matches per keyword.
func (d *DB) KeywordMatchCounts(ctx context.Context) ([]models.KeywordStat, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT k.keyword, COUNT(m.id)
		FROM keywords k
		LEFT JOIN keyword_matches m ON m.keyword_id = k.id
		GROUP BY k.keyword
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.KeywordStat
	for rows.Next() {
		var s models.KeywordStat
		if err := rows.Scan(&s.Keyword, &s.Matches); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

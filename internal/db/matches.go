package db

import (
	"context"
	"fmt"
	"strings"

	"pdfscan/internal/models"
)

// ListMatches returns matches narrowed by filter, newest first, with the
// keyword text joined in.
func (d *DB) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.KeywordMatch, error) {
	var (
		where []string
		args  []any
	)
	if filter.KeywordID != nil {
		args = append(args, *filter.KeywordID)
		where = append(where, fmt.Sprintf("m.keyword_id = $%d", len(args)))
	}
	if filter.FileName != "" {
		args = append(args, filter.FileName)
		where = append(where, fmt.Sprintf("m.file_name = $%d", len(args)))
	}

	query := `
		SELECT m.id, m.keyword_id, m.file_name, m.page_number, m.content, m.created_at, k.keyword
		FROM keyword_matches m
		JOIN keywords k ON k.id = m.keyword_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.created_at DESC, m.file_name"

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.KeywordMatch
	for rows.Next() {
		var m models.KeywordMatch
		if err := rows.Scan(&m.ID, &m.KeywordID, &m.FileName, &m.PageNumber, &m.Content, &m.CreatedAt, &m.Keyword); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

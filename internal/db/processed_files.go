package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pdfscan/internal/models"
)

// ListProcessedFiles returns every ledger row, most recently processed first.
func (d *DB) ListProcessedFiles(ctx context.Context) ([]models.ProcessedFile, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, file_name, file_path, status, processed_at
		FROM processed_files
		ORDER BY processed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.ProcessedFile
	for rows.Next() {
		var f models.ProcessedFile
		if err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.Status, &f.ProcessedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetProcessedFile retrieves the ledger row for a file name.
func (d *DB) GetProcessedFile(ctx context.Context, fileName string) (*models.ProcessedFile, error) {
	var f models.ProcessedFile
	err := d.Pool.QueryRow(ctx, `
		SELECT id, file_name, file_path, status, processed_at
		FROM processed_files
		WHERE file_name = $1
	`, fileName).Scan(&f.ID, &f.FileName, &f.FilePath, &f.Status, &f.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FileStatusCounts returns the number of ledger rows per status.
func (d *DB) FileStatusCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT status, COUNT(*) FROM processed_files GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

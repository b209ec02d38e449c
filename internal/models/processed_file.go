package models

import (
	"time"

	"github.com/google/uuid"
)

// Processing status constants
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// ProcessedFile is the ledger row for one source file name.
type ProcessedFile struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// IsProcessed returns true if the last run on this file committed successfully.
func (f *ProcessedFile) IsProcessed() bool {
	return f.Status == StatusProcessed
}

// IsFailed returns true if text could not be extracted from the file.
func (f *ProcessedFile) IsFailed() bool {
	return f.Status == StatusFailed
}

// ValidStatus reports whether status is one the ledger accepts.
func ValidStatus(status string) bool {
	return status == StatusProcessed || status == StatusFailed
}

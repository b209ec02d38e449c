package models

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is a literal search term scanned for in every converted document.
type Keyword struct {
	ID          uuid.UUID `json:"id"`
	Keyword     string    `json:"keyword"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DescriptionOrEmpty returns the description, or "" when none is set.
func (k *Keyword) DescriptionOrEmpty() string {
	if k.Description == nil {
		return ""
	}
	return *k.Description
}

// KeywordImportResult summarises a bulk keyword import.
type KeywordImportResult struct {
	Added    []string `json:"added"`
	Existing []string `json:"existing"`
}

// KeywordStat is the number of stored matches for one keyword.
type KeywordStat struct {
	Keyword string
	Matches int64
}

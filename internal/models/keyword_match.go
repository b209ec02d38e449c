package models

import (
	"time"

	"github.com/google/uuid"
)

// KeywordMatch is one occurrence of a keyword in one file, with its captured context.
type KeywordMatch struct {
	ID         uuid.UUID `json:"id"`
	KeywordID  uuid.UUID `json:"keyword_id"`
	FileName   string    `json:"file_name"`
	PageNumber *int      `json:"page_number,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`

	// Populated by joined queries
	Keyword string `json:"keyword,omitempty"`
}

// MatchFilter narrows a match query. Zero values mean "no filter".
type MatchFilter struct {
	KeywordID *uuid.UUID
	FileName  string
}

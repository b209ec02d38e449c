package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchAPIResponse is the JSON shape of a keyword match exposed to API clients.
type MatchAPIResponse struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"file_name"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"page_number,omitempty"`
	CreatedAt  string    `json:"created_at"`
}

// MatchTimeLayout is the timestamp format used for matches in API responses.
const MatchTimeLayout = "2006-01-02 15:04:05"

// NewMatchAPIResponse converts a stored match into its API representation.
func NewMatchAPIResponse(m KeywordMatch) MatchAPIResponse {
	return MatchAPIResponse{
		ID:         m.ID,
		FileName:   m.FileName,
		Content:    m.Content,
		PageNumber: m.PageNumber,
		CreatedAt:  m.CreatedAt.Format(MatchTimeLayout),
	}
}

// RunAPIResponse summarises a batch run triggered through the API.
type RunAPIResponse struct {
	RunID      uuid.UUID `json:"run_id"`
	Files      int       `json:"files"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Moved      int       `json:"moved"`
	Matches    int       `json:"matches"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Interrupted is set when the run was cancelled before every file was handled.
	Interrupted bool `json:"interrupted"`

	Failures []RunFailureAPIResponse `json:"failures"`
}

// RunFailureAPIResponse describes one file that did not make it through a run.
type RunFailureAPIResponse struct {
	File  string `json:"file"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// KeywordAPIResponse is the JSON shape of a keyword.
type KeywordAPIResponse struct {
	ID          uuid.UUID `json:"id"`
	Keyword     string    `json:"keyword"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewKeywordAPIResponse converts a keyword into its API representation.
func NewKeywordAPIResponse(k Keyword) KeywordAPIResponse {
	return KeywordAPIResponse{
		ID:          k.ID,
		Keyword:     k.Keyword,
		Description: k.DescriptionOrEmpty(),
		CreatedAt:   k.CreatedAt,
	}
}

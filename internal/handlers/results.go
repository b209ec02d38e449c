package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/models"
)

// ResultsHandler renders stored matches and the processing ledger.
type ResultsHandler struct {
	store db.Store
	cfg   *config.Config
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(store db.Store, cfg *config.Config) *ResultsHandler {
	return &ResultsHandler{store: store, cfg: cfg}
}

// Index renders matches filtered by keyword_id and/or file_name.
func (h *ResultsHandler) Index(c fiber.Ctx) error {
	var filter models.MatchFilter
	if raw := c.Query("keyword_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid keyword id")
		}
		filter.KeywordID = &id
	}
	filter.FileName = c.Query("file_name")

	matches, err := h.store.ListMatches(c.Context(), filter)
	if err != nil {
		return err
	}
	keywords, err := h.store.ListKeywords(c.Context())
	if err != nil {
		return err
	}
	files, err := h.store.ListProcessedFiles(c.Context())
	if err != nil {
		return err
	}

	selected := ""
	if filter.KeywordID != nil {
		selected = filter.KeywordID.String()
	}

	return render(c, h.cfg, "results", fiber.Map{
		"Title":           "Results",
		"Matches":         matches,
		"Keywords":        keywords,
		"Files":           files,
		"SelectedKeyword": selected,
		"SelectedFile":    filter.FileName,
	})
}

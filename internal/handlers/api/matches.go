package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"pdfscan/internal/db"
	"pdfscan/internal/models"
)

// MatchHandler exposes stored keyword matches and the processing ledger.
type MatchHandler struct {
	store db.Store
}

// NewMatchHandler creates a new API match handler.
func NewMatchHandler(store db.Store) *MatchHandler {
	return &MatchHandler{store: store}
}

// List returns matches filtered by the keyword_id and file_name query parameters.
func (h *MatchHandler) List(c fiber.Ctx) error {
	var filter models.MatchFilter
	if raw := c.Query("keyword_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
		}
		filter.KeywordID = &id
	}
	filter.FileName = c.Query("file_name")
	return h.respond(c, filter)
}

// ByKeyword returns every match of one keyword.
func (h *MatchHandler) ByKeyword(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("keyword_id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
	}

	if _, err := h.store.GetKeywordByID(c.Context(), id); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keyword")
	}

	return h.respond(c, models.MatchFilter{KeywordID: &id})
}

func (h *MatchHandler) respond(c fiber.Ctx, filter models.MatchFilter) error {
	matches, err := h.store.ListMatches(c.Context(), filter)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch matches")
	}

	resp := make([]models.MatchAPIResponse, len(matches))
	for i, m := range matches {
		resp[i] = models.NewMatchAPIResponse(m)
	}
	return jsonSuccess(c, resp)
}

// Files returns the processing ledger.
func (h *MatchHandler) Files(c fiber.Ctx) error {
	files, err := h.store.ListProcessedFiles(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch files")
	}
	if files == nil {
		files = []models.ProcessedFile{}
	}
	return jsonSuccess(c, files)
}

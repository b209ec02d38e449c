package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"pdfscan/internal/db"
	"pdfscan/internal/models"
	"pdfscan/internal/validation"
)

// KeywordHandler handles keyword CRUD via JSON API.
type KeywordHandler struct {
	store db.Store
}

// NewKeywordHandler creates a new API keyword handler.
func NewKeywordHandler(store db.Store) *KeywordHandler {
	return &KeywordHandler{store: store}
}

// List returns all keywords.
func (h *KeywordHandler) List(c fiber.Ctx) error {
	keywords, err := h.store.ListKeywords(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keywords")
	}

	resp := make([]models.KeywordAPIResponse, len(keywords))
	for i, k := range keywords {
		resp[i] = models.NewKeywordAPIResponse(k)
	}
	return jsonSuccess(c, resp)
}

// Create adds one keyword, or many when the body carries a "keywords" list.
func (h *KeywordHandler) Create(c fiber.Ctx) error {
	var body struct {
		Keyword     string   `json:"keyword"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if len(body.Keywords) > 0 {
		return h.importKeywords(c, body.Keywords)
	}

	text := validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(text); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	description := strings.TrimSpace(body.Description)
	if valid, msg := validation.ValidateDescription(description); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	keyword := &models.Keyword{Keyword: text}
	if description != "" {
		keyword.Description = &description
	}

	if err := h.store.CreateKeyword(c.Context(), keyword); err != nil {
		if errors.Is(err, db.ErrDuplicateKeyword) {
			return jsonError(c, fiber.StatusConflict, "keyword already exists")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to create keyword")
	}

	c.Status(fiber.StatusCreated)
	return jsonSuccess(c, models.NewKeywordAPIResponse(*keyword))
}

func (h *KeywordHandler) importKeywords(c fiber.Ctx, raw []string) error {
	keywords := make([]string, 0, len(raw))
	for _, k := range raw {
		k = validation.NormalizeKeyword(k)
		if k == "" {
			continue
		}
		if valid, msg := validation.ValidateKeyword(k); !valid {
			return jsonError(c, fiber.StatusBadRequest, msg+": "+k)
		}
		keywords = append(keywords, k)
	}

	result, err := h.store.ImportKeywords(c.Context(), keywords)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to import keywords")
	}
	return jsonSuccess(c, result)
}

// Delete removes a keyword and its matches.
func (h *KeywordHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
	}

	if err := h.store.DeleteKeyword(c.Context(), id); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete keyword")
	}

	return jsonSuccess(c, fiber.Map{"deleted": id})
}

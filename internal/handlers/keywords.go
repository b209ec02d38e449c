package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/models"
	"pdfscan/internal/validation"
)

// maxImportSize bounds an uploaded keyword list.
const maxImportSize = 1 << 20

// KeywordHandler handles the keyword management pages.
type KeywordHandler struct {
	store db.Store
	cfg   *config.Config
}

// NewKeywordHandler creates a new keyword handler.
func NewKeywordHandler(store db.Store, cfg *config.Config) *KeywordHandler {
	return &KeywordHandler{store: store, cfg: cfg}
}

// Index lists keywords with their stored match counts.
func (h *KeywordHandler) Index(c fiber.Ctx) error {
	keywords, err := h.store.ListKeywords(c.Context())
	if err != nil {
		return err
	}

	counts := make(map[string]int64)
	stats, err := h.store.KeywordMatchCounts(c.Context())
	if err != nil {
		return err
	}
	for _, s := range stats {
		counts[s.Keyword] = s.Matches
	}

	type row struct {
		ID          string
		Keyword     string
		Description string
		Matches     int64
	}
	rows := make([]row, len(keywords))
	for i, k := range keywords {
		rows[i] = row{
			ID:          k.ID.String(),
			Keyword:     k.Keyword,
			Description: k.DescriptionOrEmpty(),
			Matches:     counts[k.Keyword],
		}
	}

	return render(c, h.cfg, "keywords", fiber.Map{
		"Title":    "Keywords",
		"Keywords": rows,
	})
}

// Create adds a single keyword from the form.
func (h *KeywordHandler) Create(c fiber.Ctx) error {
	text := validation.NormalizeKeyword(c.FormValue("keyword"))
	description := strings.TrimSpace(c.FormValue("description"))

	if valid, msg := validation.ValidateKeyword(text); !valid {
		return redirectWithFlash(c, "/keywords", FlashError, msg)
	}
	if valid, msg := validation.ValidateDescription(description); !valid {
		return redirectWithFlash(c, "/keywords", FlashError, msg)
	}

	keyword := &models.Keyword{Keyword: text}
	if description != "" {
		keyword.Description = &description
	}

	if err := h.store.CreateKeyword(c.Context(), keyword); err != nil {
		if errors.Is(err, db.ErrDuplicateKeyword) {
			return redirectWithFlash(c, "/keywords", FlashError, fmt.Sprintf("Keyword %q already exists", text))
		}
		return err
	}

	return redirectWithFlash(c, "/keywords", FlashSuccess, fmt.Sprintf("Keyword %q added", text))
}

// Delete removes a keyword and its matches.
func (h *KeywordHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid keyword id")
	}

	if err := h.store.DeleteKeyword(c.Context(), id); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "keyword not found")
		}
		return err
	}

	return redirectWithFlash(c, "/keywords", FlashSuccess, "Keyword deleted")
}

// Import adds keywords from a pasted list or an uploaded text file, one per line.
func (h *KeywordHandler) Import(c fiber.Ctx) error {
	var src io.Reader = strings.NewReader(c.FormValue("keywords"))

	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxImportSize {
			return redirectWithFlash(c, "/keywords", FlashError, "Keyword file is too large")
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	lines, err := validation.ParseKeywordLines(src)
	if err != nil {
		return redirectWithFlash(c, "/keywords", FlashError, "Could not read keyword list")
	}

	var valid []string
	rejected := 0
	for _, line := range lines {
		if ok, _ := validation.ValidateKeyword(line); ok {
			valid = append(valid, line)
		} else {
			rejected++
		}
	}
	if len(valid) == 0 {
		return redirectWithFlash(c, "/keywords", FlashError, "No keywords to import")
	}

	result, err := h.store.ImportKeywords(c.Context(), valid)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Imported %d keywords, %d already existed", len(result.Added), len(result.Existing))
	if rejected > 0 {
		msg += fmt.Sprintf(", %d rejected", rejected)
	}
	return redirectWithFlash(c, "/keywords", FlashSuccess, msg)
}

package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/models"
)

// HomeHandler renders the dashboard.
type HomeHandler struct {
	store  db.Store
	runner RunTrigger
	cfg    *config.Config
}

// NewHomeHandler creates a new home handler.
func NewHomeHandler(store db.Store, runner RunTrigger, cfg *config.Config) *HomeHandler {
	return &HomeHandler{store: store, runner: runner, cfg: cfg}
}

// Index renders keyword and ledger totals and the latest run.
func (h *HomeHandler) Index(c fiber.Ctx) error {
	data := fiber.Map{
		"Title":     "Overview",
		"SourceDir": h.cfg.SourceDir,
		"DestDir":   h.cfg.DestDir,
		"Running":   h.runner.Running(),
	}

	keywords, err := h.store.ListKeywords(c.Context())
	if err != nil {
		return err
	}
	data["KeywordCount"] = len(keywords)

	counts, err := h.store.FileStatusCounts(c.Context())
	if err != nil {
		slog.Error("failed to count ledger files", "error", err)
	} else {
		data["ProcessedCount"] = counts[models.StatusProcessed]
		data["FailedCount"] = counts[models.StatusFailed]
	}

	if last, lastErr := h.runner.Last(); last != nil || lastErr != nil {
		data["LastRun"] = last
		if lastErr != nil {
			data["LastRunError"] = lastErr.Error()
		}
	}

	return render(c, h.cfg, "index", data)
}

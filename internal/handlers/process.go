package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"pdfscan/internal/config"
	"pdfscan/internal/jobs"
)

// ProcessHandler triggers batch runs from the browser.
type ProcessHandler struct {
	runner RunTrigger
	cfg    *config.Config
	// ctx outlives the request so a started run is not cut short.
	ctx context.Context
}

// NewProcessHandler creates a new process handler. Runs started from the
// page use ctx.
func NewProcessHandler(ctx context.Context, runner RunTrigger, cfg *config.Config) *ProcessHandler {
	return &ProcessHandler{runner: runner, cfg: cfg, ctx: ctx}
}

// Show renders the run status page.
func (h *ProcessHandler) Show(c fiber.Ctx) error {
	data := fiber.Map{
		"Title":     "Process",
		"SourceDir": h.cfg.SourceDir,
		"DestDir":   h.cfg.DestDir,
		"Schedule":  h.cfg.RunSchedule,
		"Running":   h.runner.Running(),
	}
	last, lastErr := h.runner.Last()
	data["LastRun"] = last
	if lastErr != nil {
		data["LastRunError"] = lastErr.Error()
	}
	return render(c, h.cfg, "process", data)
}

// Run starts a batch in the background.
func (h *ProcessHandler) Run(c fiber.Ctx) error {
	if err := h.runner.RunAsync(h.ctx); err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			return redirectWithFlash(c, "/process", FlashError, "A run is already in progress")
		}
		return err
	}
	return redirectWithFlash(c, "/process", FlashSuccess, "Run started")
}

package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"pdfscan/internal/jobs"
	"pdfscan/internal/models"
	"pdfscan/internal/pipeline"
)

// Runner runs a batch synchronously.
type Runner interface {
	RunNow(ctx context.Context) (*pipeline.Stats, error)
}

// RunHandler triggers batch runs via JSON API.
type RunHandler struct {
	runner Runner
}

// NewRunHandler creates a new API run handler.
func NewRunHandler(runner Runner) *RunHandler {
	return &RunHandler{runner: runner}
}

// Create runs a batch and returns its summary.
func (h *RunHandler) Create(c fiber.Ctx) error {
	stats, err := h.runner.RunNow(c.Context())
	switch {
	case errors.Is(err, jobs.ErrRunInProgress):
		return jsonError(c, fiber.StatusConflict, "a run is already in progress")
	case errors.Is(err, pipeline.ErrBatch):
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	case err != nil && stats == nil:
		return jsonError(c, fiber.StatusInternalServerError, "run failed")
	case err != nil:
		// Cancelled between files: report what was done before the stop.
		resp := NewRunAPIResponse(stats)
		resp.Interrupted = true
		return jsonErrorWithData(c, fiber.StatusServiceUnavailable, "run interrupted: "+err.Error(), resp)
	}

	return jsonSuccess(c, NewRunAPIResponse(stats))
}

// NewRunAPIResponse converts run stats into their API representation.
func NewRunAPIResponse(s *pipeline.Stats) models.RunAPIResponse {
	resp := models.RunAPIResponse{
		RunID:      s.RunID,
		Files:      s.Files,
		Processed:  s.Processed,
		Failed:     s.Failed,
		Moved:      s.Moved,
		Matches:    s.Matches,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Failures:   make([]models.RunFailureAPIResponse, len(s.Failures)),
	}
	for i, f := range s.Failures {
		resp.Failures[i] = models.RunFailureAPIResponse{
			File:  f.File,
			Stage: f.Stage(),
			Error: f.Err.Error(),
		}
	}
	return resp
}

// Package handlers serves the HTML pages of the web interface.
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"pdfscan/internal/config"
	"pdfscan/internal/pipeline"
)

// RunTrigger starts batch runs on demand and reports on the latest one.
type RunTrigger interface {
	RunAsync(ctx context.Context) error
	Running() bool
	Last() (*pipeline.Stats, error)
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const (
	flashKindKey    = "flash_kind"
	flashMessageKey = "flash_message"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// setFlash stores a message for the next page render.
func setFlash(c fiber.Ctx, kind, message string) {
	sess := session.FromContext(c)
	if sess == nil {
		return
	}
	sess.Set(flashKindKey, kind)
	sess.Set(flashMessageKey, message)
}

// popFlash returns and clears the pending message, if any.
func popFlash(c fiber.Ctx) *Flash {
	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}
	message, _ := sess.Get(flashMessageKey).(string)
	if message == "" {
		return nil
	}
	kind, _ := sess.Get(flashKindKey).(string)
	sess.Delete(flashKindKey)
	sess.Delete(flashMessageKey)
	return &Flash{Kind: kind, Message: message}
}

// render merges branding and the pending flash message into data.
func render(c fiber.Ctx, cfg *config.Config, name string, data fiber.Map) error {
	data = MergeBranding(data, cfg)
	if flash := popFlash(c); flash != nil {
		data["Flash"] = flash
	}
	return c.Render(name, data)
}

// redirectWithFlash stores a message and sends the browser to location.
func redirectWithFlash(c fiber.Ctx, location, kind, message string) error {
	setFlash(c, kind, message)
	return c.Redirect().Status(fiber.StatusSeeOther).To(location)
}

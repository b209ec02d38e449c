package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdfscan/internal/db"
	"pdfscan/internal/handlers"
	"pdfscan/internal/handlers/api"
	"pdfscan/internal/jobs"
)

// RegisterRoutes registers all application routes. Runs started from the web
// interface use ctx.
func (s *Server) RegisterRoutes(ctx context.Context, store db.Store, runner *jobs.Runner) {
	// HTML handlers
	homeHandler := handlers.NewHomeHandler(store, runner, s.Cfg)
	keywordHandler := handlers.NewKeywordHandler(store, s.Cfg)
	resultsHandler := handlers.NewResultsHandler(store, s.Cfg)
	processHandler := handlers.NewProcessHandler(ctx, runner, s.Cfg)

	// API handlers
	apiKeywordHandler := api.NewKeywordHandler(store)
	apiMatchHandler := api.NewMatchHandler(store)
	apiRunHandler := api.NewRunHandler(runner)
	healthHandler := api.NewHealthHandler(store)

	// Operational endpoints
	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Frontend routes
	s.App.Get("/", homeHandler.Index)
	s.App.Get("/keywords", keywordHandler.Index)
	s.App.Post("/keywords", keywordHandler.Create)
	s.App.Post("/keywords/import", keywordHandler.Import)
	s.App.Post("/keywords/:id/delete", keywordHandler.Delete)
	s.App.Get("/results", resultsHandler.Index)
	s.App.Get("/process", processHandler.Show)
	s.App.Post("/process", processHandler.Run)

	// JSON API
	apiGroup := s.App.Group("/api")
	apiGroup.Get("/keywords", apiKeywordHandler.List)
	apiGroup.Post("/keywords", apiKeywordHandler.Create)
	apiGroup.Delete("/keywords/:id", apiKeywordHandler.Delete)
	apiGroup.Get("/matches", apiMatchHandler.List)
	apiGroup.Get("/matches/:keyword_id", apiMatchHandler.ByKeyword)
	apiGroup.Get("/files", apiMatchHandler.Files)
	apiGroup.Post("/runs", apiRunHandler.Create)
}

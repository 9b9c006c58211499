package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is a chi-compatible middleware constructor.
type Middleware = func(http.Handler) http.Handler

// MountRoutes registers all API routes on the given chi router. idem, when
// non-nil, is applied to board and card mutation routes only; the AI routes
// are never replayed from cache.
func MountRoutes(r chi.Router, h *Handlers, idem Middleware) {
	if idem == nil {
		idem = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "canban API",
			"version": "1.0.0",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		// Boards
		r.Get("/boards", h.ListBoards)
		r.Get("/boards/archived", h.ListArchivedBoards)
		r.With(idem).Post("/boards", h.CreateBoard)
		r.Get("/boards/{boardID}", h.GetBoard)
		r.With(idem).Put("/boards/{boardID}", h.UpdateBoard)
		r.With(idem).Delete("/boards/{boardID}", h.DeleteBoard)
		r.With(idem).Post("/boards/{boardID}/restore", h.RestoreBoard)

		// Cards
		r.Get("/cards", h.ListCards)
		r.Get("/cards/board/{boardID}", h.ListCardsByBoard)
		r.With(idem).Post("/cards", h.CreateCard)
		r.With(idem).Post("/cards/reorder", h.ReorderCards)
		r.Get("/cards/{cardID}", h.GetCard)
		r.With(idem).Put("/cards/{cardID}", h.UpdateCard)
		r.With(idem).Delete("/cards/{cardID}", h.DeleteCard)
		r.With(idem).Post("/cards/{cardID}/move", h.MoveCard)

		// AI
		r.Post("/ai/prioritize", h.PrioritizeCards)
		r.Post("/ai/suggest", h.SuggestForCard)
		r.Get("/ai/daily-briefing", h.DailyBriefing)
		r.Post("/ai/extract-tasks", h.ExtractTasks)
		r.Post("/ai/create-extracted-tasks", h.CreateExtractedTasks)

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.SaveSettings)
	})
}

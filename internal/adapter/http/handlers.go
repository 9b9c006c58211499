package http

import (
	"github.com/canban-ai/canban/internal/service"
)

// Handlers bundles the services the HTTP layer exposes.
type Handlers struct {
	Boards   *service.BoardService
	Cards    *service.CardService
	AI       *service.AIService
	Settings *service.SettingsService
}

// NewHandlers creates the handler set.
func NewHandlers(boards *service.BoardService, cards *service.CardService, ai *service.AIService, settings *service.SettingsService) *Handlers {
	return &Handlers{
		Boards:   boards,
		Cards:    cards,
		AI:       ai,
		Settings: settings,
	}
}

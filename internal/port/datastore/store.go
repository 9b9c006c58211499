// Package datastore defines the persistence port (interface).
package datastore

import (
	"context"

	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
)

// Store is the port interface over the boards/cards/priority_history tables.
// Implementations return domain.ErrNotFound (wrapped) when a row-targeted
// operation matches nothing. Rows are never hard-deleted through this port.
type Store interface {
	// --- Boards ---

	// ListBoards returns boards with the given activity flag, ordered by position.
	ListBoards(ctx context.Context, active bool) ([]board.Board, error)
	// ListAllBoards returns every board regardless of activity flag. The AI
	// passes use it to resolve board names for archived cards too.
	ListAllBoards(ctx context.Context) ([]board.Board, error)
	GetBoard(ctx context.Context, id string) (*board.Board, error)
	CreateBoard(ctx context.Context, req board.CreateRequest) (*board.Board, error)
	// UpdateBoard applies the non-nil fields of req and bumps updated_at.
	UpdateBoard(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error)
	// SetBoardActive toggles the soft-delete flag on a single board.
	SetBoardActive(ctx context.Context, id string, active bool) (*board.Board, error)

	// --- Cards ---

	// ListCardsByBoard returns active cards of one board, ordered by position.
	ListCardsByBoard(ctx context.Context, boardID string) ([]card.Card, error)
	// ListActiveCards returns all active cards, ordered by priority.
	ListActiveCards(ctx context.Context) ([]card.Card, error)
	// ListAllCards returns every card regardless of activity flag, optionally
	// filtered by board. Used by the prioritization pass.
	ListAllCards(ctx context.Context, boardID string) ([]card.Card, error)
	// ListOpenCards returns cards whose status is not done, ordered by priority.
	ListOpenCards(ctx context.Context) ([]card.Card, error)
	GetCard(ctx context.Context, id string) (*card.Card, error)
	CreateCard(ctx context.Context, req card.CreateRequest) (*card.Card, error)
	// UpdateCard applies the non-nil fields of req and bumps updated_at.
	UpdateCard(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error)
	// SetCardActive toggles the soft-delete flag on a single card.
	SetCardActive(ctx context.Context, id string, active bool) (*card.Card, error)
	// SetCardsActiveByBoard toggles the soft-delete flag on every card of a
	// board. It is the cascade half of a board archive/restore.
	SetCardsActiveByBoard(ctx context.Context, boardID string, active bool) error
	// UpdateCardPriority writes the priority and its reasoning onto a card.
	UpdateCardPriority(ctx context.Context, id string, priority int, reason string) error
	// UpdateCardPosition writes position and, when status is non-nil, status.
	UpdateCardPosition(ctx context.Context, id string, position int, status *card.Status) error

	// --- Priority history ---

	// InsertPriorityHistory appends one audit row. History is never updated
	// or deleted.
	InsertPriorityHistory(ctx context.Context, h card.PriorityHistory) error
}

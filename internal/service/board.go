// Package service implements the application services on top of the
// datastore, gateway, and queue ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/port/datastore"
	"github.com/canban-ai/canban/internal/port/messagequeue"
)

// BoardService provides board CRUD and soft-delete lifecycle.
type BoardService struct {
	store datastore.Store
	queue messagequeue.Queue // nil when events are disabled
}

// NewBoardService creates a BoardService.
func NewBoardService(store datastore.Store, queue messagequeue.Queue) *BoardService {
	return &BoardService{store: store, queue: queue}
}

// List returns all active boards ordered by position.
func (s *BoardService) List(ctx context.Context) ([]board.Board, error) {
	return s.store.ListBoards(ctx, true)
}

// ListArchived returns all soft-deleted boards ordered by position.
func (s *BoardService) ListArchived(ctx context.Context) ([]board.Board, error) {
	return s.store.ListBoards(ctx, false)
}

// Get returns one board by ID.
func (s *BoardService) Get(ctx context.Context, id string) (*board.Board, error) {
	return s.store.GetBoard(ctx, id)
}

// Create creates a new board.
func (s *BoardService) Create(ctx context.Context, req board.CreateRequest) (*board.Board, error) {
	return s.store.CreateBoard(ctx, req)
}

// Update applies a partial update to a board.
func (s *BoardService) Update(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error) {
	return s.store.UpdateBoard(ctx, id, req)
}

// Archive soft-deletes a board and all its cards. Cards are flagged first so
// a failure midway never leaves an archived board with live cards.
func (s *BoardService) Archive(ctx context.Context, id string) error {
	if err := s.store.SetCardsActiveByBoard(ctx, id, false); err != nil {
		return fmt.Errorf("archive cards of board %s: %w", id, err)
	}
	if _, err := s.store.SetBoardActive(ctx, id, false); err != nil {
		return err
	}
	s.publish(ctx, messagequeue.SubjectBoardArchived, boardEvent{BoardID: id})
	return nil
}

// Restore reactivates a soft-deleted board and all its cards.
func (s *BoardService) Restore(ctx context.Context, id string) (*board.Board, error) {
	if err := s.store.SetCardsActiveByBoard(ctx, id, true); err != nil {
		return nil, fmt.Errorf("restore cards of board %s: %w", id, err)
	}
	b, err := s.store.SetBoardActive(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messagequeue.SubjectBoardRestored, boardEvent{BoardID: id})
	return b, nil
}

type boardEvent struct {
	BoardID string `json:"board_id"`
}

// publish emits an event best-effort; delivery failures are logged, never
// surfaced to the caller.
func (s *BoardService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/canban-ai/canban/internal/domain/card"
	"github.com/canban-ai/canban/internal/port/datastore"
	"github.com/canban-ai/canban/internal/port/messagequeue"
)

// CardService provides card CRUD, move, and reorder operations.
type CardService struct {
	store datastore.Store
	queue messagequeue.Queue // nil when events are disabled
}

// NewCardService creates a CardService.
func NewCardService(store datastore.Store, queue messagequeue.Queue) *CardService {
	return &CardService{store: store, queue: queue}
}

// ListByBoard returns the active cards of one board ordered by position.
func (s *CardService) ListByBoard(ctx context.Context, boardID string) ([]card.Card, error) {
	return s.store.ListCardsByBoard(ctx, boardID)
}

// ListActive returns all active cards across boards ordered by priority.
func (s *CardService) ListActive(ctx context.Context) ([]card.Card, error) {
	return s.store.ListActiveCards(ctx)
}

// Get returns one card by ID.
func (s *CardService) Get(ctx context.Context, id string) (*card.Card, error) {
	return s.store.GetCard(ctx, id)
}

// Create creates a new card with defaults applied by the store.
func (s *CardService) Create(ctx context.Context, req card.CreateRequest) (*card.Card, error) {
	c, err := s.store.CreateCard(ctx, req)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messagequeue.SubjectCardCreated, cardEvent{CardID: c.ID, BoardID: c.BoardID})
	return c, nil
}

// Update applies a partial update to a card.
func (s *CardService) Update(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
	return s.store.UpdateCard(ctx, id, req)
}

// Archive soft-deletes a single card.
func (s *CardService) Archive(ctx context.Context, id string) error {
	_, err := s.store.SetCardActive(ctx, id, false)
	return err
}

// Move changes a card's status, position, or board in one partial update.
func (s *CardService) Move(ctx context.Context, id string, req card.MoveRequest) (*card.Card, error) {
	return s.store.UpdateCard(ctx, id, card.UpdateRequest{
		Status:   req.Status,
		Position: req.Position,
		BoardID:  req.BoardID,
	})
}

// Reorder applies a batch of position (and optional status) updates
// sequentially. The first failing update aborts the rest.
func (s *CardService) Reorder(ctx context.Context, entries []card.ReorderEntry) error {
	for _, e := range entries {
		if err := s.store.UpdateCardPosition(ctx, e.ID, e.Position, e.Status); err != nil {
			return fmt.Errorf("reorder card %s: %w", e.ID, err)
		}
	}
	return nil
}

type cardEvent struct {
	CardID  string `json:"card_id"`
	BoardID string `json:"board_id,omitempty"`
}

func (s *CardService) publish(ctx context.Context, subject string, payload any) {
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

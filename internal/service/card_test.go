package service

import (
	"context"
	"errors"
	"testing"

	"github.com/canban-ai/canban/internal/domain/card"
)

func TestCardCreatePublishesEvent(t *testing.T) {
	store := &mockStore{
		createCard: func(_ context.Context, req card.CreateRequest) (*card.Card, error) {
			return &card.Card{ID: "c1", BoardID: req.BoardID, Title: req.Title}, nil
		},
	}
	queue := &mockQueue{}

	c, err := NewCardService(store, queue).Create(context.Background(), card.CreateRequest{
		BoardID: "b1", Title: "New task",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID != "c1" {
		t.Fatalf("unexpected card: %+v", c)
	}
	if len(queue.published) != 1 || queue.published[0].Subject != "cards.created" {
		t.Fatalf("unexpected events: %+v", queue.published)
	}
}

func TestCardMoveMapsToPartialUpdate(t *testing.T) {
	status := card.StatusDone
	position := 4
	store := &mockStore{
		updateCard: func(_ context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
			if req.Status == nil || *req.Status != card.StatusDone {
				t.Fatalf("status not forwarded: %+v", req)
			}
			if req.Position == nil || *req.Position != 4 {
				t.Fatalf("position not forwarded: %+v", req)
			}
			if req.Title != nil || req.Priority != nil {
				t.Fatalf("move must not touch other fields: %+v", req)
			}
			return &card.Card{ID: id, Status: *req.Status, Position: *req.Position}, nil
		},
	}

	_, err := NewCardService(store, nil).Move(context.Background(), "c1", card.MoveRequest{
		Status: &status, Position: &position,
	})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
}

func TestCardReorderAbortsOnFirstFailure(t *testing.T) {
	updateErr := errors.New("write failed")
	var updated []string
	store := &mockStore{
		updateCardPosition: func(_ context.Context, id string, position int, status *card.Status) error {
			updated = append(updated, id)
			if id == "c2" {
				return updateErr
			}
			return nil
		},
	}

	entries := []card.ReorderEntry{
		{ID: "c1", Position: 0},
		{ID: "c2", Position: 1},
		{ID: "c3", Position: 2},
	}
	err := NewCardService(store, nil).Reorder(context.Background(), entries)
	if !errors.Is(err, updateErr) {
		t.Fatalf("err = %v, want wrapped update error", err)
	}
	if len(updated) != 2 {
		t.Fatalf("updated %v, want abort after c2", updated)
	}
}

func TestCardReorderForwardsStatus(t *testing.T) {
	status := card.StatusInProgress
	store := &mockStore{
		updateCardPosition: func(_ context.Context, id string, position int, st *card.Status) error {
			if id == "c1" && (st == nil || *st != card.StatusInProgress) {
				t.Fatalf("status not forwarded for c1: %v", st)
			}
			if id == "c2" && st != nil {
				t.Fatalf("unexpected status for c2: %v", st)
			}
			return nil
		},
	}

	entries := []card.ReorderEntry{
		{ID: "c1", Position: 0, Status: &status},
		{ID: "c2", Position: 1},
	}
	if err := NewCardService(store, nil).Reorder(context.Background(), entries); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
}

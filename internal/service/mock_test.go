package service

import (
	"context"
	"errors"

	"github.com/canban-ai/canban/internal/adapter/openai"
	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
	"github.com/canban-ai/canban/internal/port/messagequeue"
)

// mockStore implements datastore.Store with overridable function fields.
// Unset methods return errNotImplemented so a test fails loudly when a code
// path it did not expect is taken.
type mockStore struct {
	listBoards            func(ctx context.Context, active bool) ([]board.Board, error)
	listAllBoards         func(ctx context.Context) ([]board.Board, error)
	getBoard              func(ctx context.Context, id string) (*board.Board, error)
	createBoard           func(ctx context.Context, req board.CreateRequest) (*board.Board, error)
	updateBoard           func(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error)
	setBoardActive        func(ctx context.Context, id string, active bool) (*board.Board, error)
	listCardsByBoard      func(ctx context.Context, boardID string) ([]card.Card, error)
	listActiveCards       func(ctx context.Context) ([]card.Card, error)
	listAllCards          func(ctx context.Context, boardID string) ([]card.Card, error)
	listOpenCards         func(ctx context.Context) ([]card.Card, error)
	getCard               func(ctx context.Context, id string) (*card.Card, error)
	createCard            func(ctx context.Context, req card.CreateRequest) (*card.Card, error)
	updateCard            func(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error)
	setCardActive         func(ctx context.Context, id string, active bool) (*card.Card, error)
	setCardsActiveByBoard func(ctx context.Context, boardID string, active bool) error
	updateCardPriority    func(ctx context.Context, id string, priority int, reason string) error
	updateCardPosition    func(ctx context.Context, id string, position int, status *card.Status) error
	insertPriorityHistory func(ctx context.Context, h card.PriorityHistory) error
}

var errNotImplemented = errors.New("mock: not implemented")

func (m *mockStore) ListBoards(ctx context.Context, active bool) ([]board.Board, error) {
	if m.listBoards == nil {
		return nil, errNotImplemented
	}
	return m.listBoards(ctx, active)
}

func (m *mockStore) ListAllBoards(ctx context.Context) ([]board.Board, error) {
	if m.listAllBoards == nil {
		return nil, errNotImplemented
	}
	return m.listAllBoards(ctx)
}

func (m *mockStore) GetBoard(ctx context.Context, id string) (*board.Board, error) {
	if m.getBoard == nil {
		return nil, errNotImplemented
	}
	return m.getBoard(ctx, id)
}

func (m *mockStore) CreateBoard(ctx context.Context, req board.CreateRequest) (*board.Board, error) {
	if m.createBoard == nil {
		return nil, errNotImplemented
	}
	return m.createBoard(ctx, req)
}

func (m *mockStore) UpdateBoard(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error) {
	if m.updateBoard == nil {
		return nil, errNotImplemented
	}
	return m.updateBoard(ctx, id, req)
}

func (m *mockStore) SetBoardActive(ctx context.Context, id string, active bool) (*board.Board, error) {
	if m.setBoardActive == nil {
		return nil, errNotImplemented
	}
	return m.setBoardActive(ctx, id, active)
}

func (m *mockStore) ListCardsByBoard(ctx context.Context, boardID string) ([]card.Card, error) {
	if m.listCardsByBoard == nil {
		return nil, errNotImplemented
	}
	return m.listCardsByBoard(ctx, boardID)
}

func (m *mockStore) ListActiveCards(ctx context.Context) ([]card.Card, error) {
	if m.listActiveCards == nil {
		return nil, errNotImplemented
	}
	return m.listActiveCards(ctx)
}

func (m *mockStore) ListAllCards(ctx context.Context, boardID string) ([]card.Card, error) {
	if m.listAllCards == nil {
		return nil, errNotImplemented
	}
	return m.listAllCards(ctx, boardID)
}

func (m *mockStore) ListOpenCards(ctx context.Context) ([]card.Card, error) {
	if m.listOpenCards == nil {
		return nil, errNotImplemented
	}
	return m.listOpenCards(ctx)
}

func (m *mockStore) GetCard(ctx context.Context, id string) (*card.Card, error) {
	if m.getCard == nil {
		return nil, errNotImplemented
	}
	return m.getCard(ctx, id)
}

func (m *mockStore) CreateCard(ctx context.Context, req card.CreateRequest) (*card.Card, error) {
	if m.createCard == nil {
		return nil, errNotImplemented
	}
	return m.createCard(ctx, req)
}

func (m *mockStore) UpdateCard(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
	if m.updateCard == nil {
		return nil, errNotImplemented
	}
	return m.updateCard(ctx, id, req)
}

func (m *mockStore) SetCardActive(ctx context.Context, id string, active bool) (*card.Card, error) {
	if m.setCardActive == nil {
		return nil, errNotImplemented
	}
	return m.setCardActive(ctx, id, active)
}

func (m *mockStore) SetCardsActiveByBoard(ctx context.Context, boardID string, active bool) error {
	if m.setCardsActiveByBoard == nil {
		return errNotImplemented
	}
	return m.setCardsActiveByBoard(ctx, boardID, active)
}

func (m *mockStore) UpdateCardPriority(ctx context.Context, id string, priority int, reason string) error {
	if m.updateCardPriority == nil {
		return errNotImplemented
	}
	return m.updateCardPriority(ctx, id, priority, reason)
}

func (m *mockStore) UpdateCardPosition(ctx context.Context, id string, position int, status *card.Status) error {
	if m.updateCardPosition == nil {
		return errNotImplemented
	}
	return m.updateCardPosition(ctx, id, position, status)
}

func (m *mockStore) InsertPriorityHistory(ctx context.Context, h card.PriorityHistory) error {
	if m.insertPriorityHistory == nil {
		return errNotImplemented
	}
	return m.insertPriorityHistory(ctx, h)
}

// mockQueue records published events.
type mockQueue struct {
	published []publishedEvent
	publishFn func(ctx context.Context, subject string, data []byte) error
}

type publishedEvent struct {
	Subject string
	Data    []byte
}

func (m *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, subject, data); err != nil {
			return err
		}
	}
	m.published = append(m.published, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (m *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return nil, errNotImplemented
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

// fakeLLM returns canned completion content and records the requests it saw.
type fakeLLM struct {
	content  string
	err      error
	requests []openai.ChatCompletionRequest
}

func (f *fakeLLM) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletionResponse{Content: f.content}, nil
}

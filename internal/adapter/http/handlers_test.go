package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	cbhttp "github.com/canban-ai/canban/internal/adapter/http"
	"github.com/canban-ai/canban/internal/adapter/openai"
	"github.com/canban-ai/canban/internal/domain"
	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
	"github.com/canban-ai/canban/internal/domain/insight"
	"github.com/canban-ai/canban/internal/service"
)

// memStore is an in-memory datastore.Store for handler tests.
type memStore struct {
	boards  map[string]*board.Board
	cards   map[string]*card.Card
	history []card.PriorityHistory
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		boards: make(map[string]*board.Board),
		cards:  make(map[string]*card.Card),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) ListBoards(_ context.Context, active bool) ([]board.Board, error) {
	var out []board.Board
	for _, b := range m.boards {
		if b.IsActive == active {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) ListAllBoards(_ context.Context) ([]board.Board, error) {
	var out []board.Board
	for _, b := range m.boards {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memStore) GetBoard(_ context.Context, id string) (*board.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) CreateBoard(_ context.Context, req board.CreateRequest) (*board.Board, error) {
	color := req.Color
	if color == "" {
		color = board.DefaultColor
	}
	b := &board.Board{
		ID:          m.id("board"),
		Name:        req.Name,
		Description: req.Description,
		Color:       color,
		Position:    req.Position,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	m.boards[b.ID] = b
	cp := *b
	return &cp, nil
}

func (m *memStore) UpdateBoard(_ context.Context, id string, req board.UpdateRequest) (*board.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Color != nil {
		b.Color = *req.Color
	}
	if req.Position != nil {
		b.Position = *req.Position
	}
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

func (m *memStore) SetBoardActive(_ context.Context, id string, active bool) (*board.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.IsActive = active
	cp := *b
	return &cp, nil
}

func (m *memStore) ListCardsByBoard(_ context.Context, boardID string) ([]card.Card, error) {
	var out []card.Card
	for _, c := range m.cards {
		if c.BoardID == boardID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveCards(_ context.Context) ([]card.Card, error) {
	var out []card.Card
	for _, c := range m.cards {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ListAllCards(_ context.Context, boardID string) ([]card.Card, error) {
	var out []card.Card
	for _, c := range m.cards {
		if boardID == "" || c.BoardID == boardID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ListOpenCards(_ context.Context) ([]card.Card, error) {
	var out []card.Card
	for _, c := range m.cards {
		if c.Status != card.StatusDone {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) GetCard(_ context.Context, id string) (*card.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateCard(_ context.Context, req card.CreateRequest) (*card.Card, error) {
	status := req.Status
	if status == "" {
		status = card.StatusTodo
	}
	priority := req.Priority
	if priority == 0 {
		priority = card.PriorityDefault
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	c := &card.Card{
		ID:             m.id("card"),
		BoardID:        req.BoardID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		PriorityReason: req.PriorityReason,
		EstimatedHours: req.EstimatedHours,
		Deadline:       req.Deadline,
		Position:       req.Position,
		Tags:           tags,
		Metadata:       req.Metadata,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	m.cards[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) UpdateCard(_ context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.BoardID != nil {
		c.BoardID = *req.BoardID
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.Deadline != nil {
		c.Deadline = *req.Deadline
	}
	if req.Position != nil {
		c.Position = *req.Position
	}
	if req.Tags != nil {
		c.Tags = *req.Tags
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (m *memStore) SetCardActive(_ context.Context, id string, active bool) (*card.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.IsActive = active
	cp := *c
	return &cp, nil
}

func (m *memStore) SetCardsActiveByBoard(_ context.Context, boardID string, active bool) error {
	for _, c := range m.cards {
		if c.BoardID == boardID {
			c.IsActive = active
		}
	}
	return nil
}

func (m *memStore) UpdateCardPriority(_ context.Context, id string, priority int, reason string) error {
	c, ok := m.cards[id]
	if !ok {
		return nil
	}
	c.Priority = priority
	c.PriorityReason = reason
	return nil
}

func (m *memStore) UpdateCardPosition(_ context.Context, id string, position int, status *card.Status) error {
	c, ok := m.cards[id]
	if !ok {
		return nil
	}
	c.Position = position
	if status != nil {
		c.Status = *status
	}
	return nil
}

func (m *memStore) InsertPriorityHistory(_ context.Context, h card.PriorityHistory) error {
	m.history = append(m.history, h)
	return nil
}

// newTestRouter wires a full router against the in-memory store and the
// given chat-completions endpoint.
func newTestRouter(t *testing.T, store *memStore, llmURL string) chi.Router {
	t.Helper()

	llm := openai.NewClient(llmURL, "test-key", time.Second)
	h := cbhttp.NewHandlers(
		service.NewBoardService(store, nil),
		service.NewCardService(store, nil),
		service.NewAIService(store, llm, nil, "gpt-4o-mini", nil),
		service.NewSettingsServiceAt(filepath.Join(t.TempDir(), ".env")),
	)

	r := chi.NewRouter()
	cbhttp.MountRoutes(r, h, nil)
	return r
}

// llmServer returns an httptest server answering every chat completion with
// the given content.
func llmServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndRoot(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "canban API") {
		t.Fatalf("root = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBoardLifecycle(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, "http://unused")

	// Create
	rec := doJSON(t, r, http.MethodPost, "/api/boards", board.CreateRequest{Name: "Work"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	created := decode[board.Board](t, rec)
	if created.Color != board.DefaultColor {
		t.Fatalf("default color not applied: %+v", created)
	}

	// A card on the board
	rec = doJSON(t, r, http.MethodPost, "/api/cards", card.CreateRequest{BoardID: created.ID, Title: "Task"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create card = %d %s", rec.Code, rec.Body.String())
	}
	c := decode[card.Card](t, rec)
	if c.Status != card.StatusTodo || c.Priority != card.PriorityDefault {
		t.Fatalf("card defaults not applied: %+v", c)
	}

	// Archive cascades
	rec = doJSON(t, r, http.MethodDelete, "/api/boards/"+created.ID, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Board archived successfully") {
		t.Fatalf("archive = %d %s", rec.Code, rec.Body.String())
	}
	if store.cards[c.ID].IsActive {
		t.Fatal("card still active after board archive")
	}

	// Archived board listed
	rec = doJSON(t, r, http.MethodGet, "/api/boards/archived", nil)
	archived := decode[[]board.Board](t, rec)
	if len(archived) != 1 {
		t.Fatalf("archived boards = %+v", archived)
	}

	// Restore cascades back
	rec = doJSON(t, r, http.MethodPost, "/api/boards/"+created.ID+"/restore", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore = %d %s", rec.Code, rec.Body.String())
	}
	if !store.cards[c.ID].IsActive {
		t.Fatal("card not restored with board")
	}
}

func TestBoardNotFound(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	rec := doJSON(t, r, http.MethodGet, "/api/boards/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[map[string]string](t, rec)
	if resp["error"] != "Board not found" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestCreateBoardValidation(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	rec := doJSON(t, r, http.MethodPost, "/api/boards", board.CreateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateCardValidation(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	cases := []card.CreateRequest{
		{BoardID: "b1"},                                     // no title
		{Title: "t"},                                        // no board
		{BoardID: "b1", Title: "t", Status: card.Status("waiting")}, // bad status
	}
	for i, req := range cases {
		rec := doJSON(t, r, http.MethodPost, "/api/cards", req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestMoveCard(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, "http://unused")

	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "B"})
	c, _ := store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "T"})

	status := card.StatusDone
	pos := 3
	rec := doJSON(t, r, http.MethodPost, "/api/cards/"+c.ID+"/move", card.MoveRequest{Status: &status, Position: &pos})
	if rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	moved := decode[card.Card](t, rec)
	if moved.Status != card.StatusDone || moved.Position != 3 {
		t.Fatalf("move not applied: %+v", moved)
	}
}

func TestReorderCards(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, "http://unused")

	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "B"})
	c1, _ := store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "one"})
	c2, _ := store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "two"})

	entries := []card.ReorderEntry{
		{ID: c1.ID, Position: 1},
		{ID: c2.ID, Position: 0},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/cards/reorder", entries)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Cards reordered successfully") {
		t.Fatalf("reorder = %d %s", rec.Code, rec.Body.String())
	}
	if store.cards[c1.ID].Position != 1 || store.cards[c2.ID].Position != 0 {
		t.Fatal("positions not applied")
	}
}

func TestPrioritizeEndpoint(t *testing.T) {
	store := newMemStore()
	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "B"})
	c, _ := store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "T"})

	srv := llmServer(t, fmt.Sprintf(`[{"id": %q, "priority": 1, "reasoning": "urgent"}]`, c.ID))
	r := newTestRouter(t, store, srv.URL)

	rec := doJSON(t, r, http.MethodPost, "/api/ai/prioritize", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("prioritize = %d %s", rec.Code, rec.Body.String())
	}
	result := decode[insight.PrioritizeResult](t, rec)
	if result.CardsUpdated != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if store.cards[c.ID].Priority != 1 {
		t.Fatal("priority not written back")
	}
	if len(store.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(store.history))
	}
}

func TestPrioritizeMalformedIs500(t *testing.T) {
	store := newMemStore()
	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "B"})
	_, _ = store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "T"})

	srv := llmServer(t, "sorry, I cannot help with that")
	r := newTestRouter(t, store, srv.URL)

	rec := doJSON(t, r, http.MethodPost, "/api/ai/prioritize", map[string]string{})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSuggestEndpointNotFound(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	rec := doJSON(t, r, http.MethodPost, "/api/ai/suggest", map[string]string{"card_id": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDailyBriefingFallback(t *testing.T) {
	store := newMemStore()
	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "B"})
	_, _ = store.CreateCard(context.Background(), card.CreateRequest{BoardID: b.ID, Title: "T", Priority: 1})

	// Gateway down: the endpoint still answers with the fallback briefing.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	r := newTestRouter(t, store, srv.URL)

	rec := doJSON(t, r, http.MethodGet, "/api/ai/daily-briefing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("briefing = %d %s", rec.Code, rec.Body.String())
	}
	briefing := decode[insight.Briefing](t, rec)
	if len(briefing.Suggestions) != 2 || briefing.Suggestions[0] != "Review your high-priority tasks first" {
		t.Fatalf("expected fallback suggestions, got %+v", briefing.Suggestions)
	}
}

func TestExtractAndCreateTasks(t *testing.T) {
	store := newMemStore()
	b, _ := store.CreateBoard(context.Background(), board.CreateRequest{Name: "School"})

	srv := llmServer(t, `{"tasks": [{"title": "Write essay", "priority": 2, "tags": ["essay"]}], "summary": "1 task"}`)
	r := newTestRouter(t, store, srv.URL)

	rec := doJSON(t, r, http.MethodPost, "/api/ai/extract-tasks", map[string]string{
		"text": "essay due friday", "board_id": b.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("extract = %d %s", rec.Code, rec.Body.String())
	}
	extraction := decode[insight.Extraction](t, rec)
	if len(extraction.Tasks) != 1 || extraction.Tasks[0].BoardID != b.ID {
		t.Fatalf("unexpected extraction: %+v", extraction)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/ai/create-extracted-tasks", map[string]any{
		"tasks": extraction.Tasks,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create-extracted = %d %s", rec.Code, rec.Body.String())
	}
	created := decode[insight.CreatedTasks](t, rec)
	if created.CreatedCount != 1 {
		t.Fatalf("unexpected created: %+v", created)
	}
	if created.Cards[0].Metadata["source"] != "ai_extraction" {
		t.Fatalf("metadata missing: %+v", created.Cards[0].Metadata)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	r := newTestRouter(t, newMemStore(), "http://unused")

	rec := doJSON(t, r, http.MethodGet, "/api/settings", nil)
	settings := decode[service.Settings](t, rec)
	if settings.Saved {
		t.Fatal("fresh settings must report saved=false")
	}

	rec = doJSON(t, r, http.MethodPost, "/api/settings", service.Settings{OpenAIAPIKey: "sk-new"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}
	saved := decode[service.Settings](t, rec)
	if !saved.Saved || saved.OpenAIAPIKey != "sk-new" {
		t.Fatalf("unexpected save result: %+v", saved)
	}
}

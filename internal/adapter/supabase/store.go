package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/canban-ai/canban/internal/domain"
	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
)

const (
	tableBoards  = "boards"
	tableCards   = "cards"
	tableHistory = "priority_history"
)

func eq(v string) string   { return "eq." + v }
func eqBool(b bool) string { return "eq." + strconv.FormatBool(b) }

// --- Boards ---

func (c *Client) ListBoards(ctx context.Context, active bool) ([]board.Board, error) {
	q := url.Values{}
	q.Set("is_active", eqBool(active))
	q.Set("order", "position.asc")

	data, err := c.doRequest(ctx, http.MethodGet, tableBoards, q, nil)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	var boards []board.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		return nil, fmt.Errorf("unmarshal boards: %w", err)
	}
	return boards, nil
}

func (c *Client) ListAllBoards(ctx context.Context) ([]board.Board, error) {
	data, err := c.doRequest(ctx, http.MethodGet, tableBoards, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list all boards: %w", err)
	}

	var boards []board.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		return nil, fmt.Errorf("unmarshal boards: %w", err)
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, id string) (*board.Board, error) {
	q := url.Values{}
	q.Set("id", eq(id))

	data, err := c.doRequest(ctx, http.MethodGet, tableBoards, q, nil)
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", id, err)
	}
	return firstBoard(data, id)
}

func (c *Client) CreateBoard(ctx context.Context, req board.CreateRequest) (*board.Board, error) {
	color := req.Color
	if color == "" {
		color = board.DefaultColor
	}
	now := c.timestamp()
	body, err := json.Marshal(map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"color":       color,
		"position":    req.Position,
		"is_active":   true,
		"created_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal board: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, tableBoards, nil, body)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return firstBoard(data, "")
}

func (c *Client) UpdateBoard(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error) {
	patch := map[string]any{"updated_at": c.timestamp()}
	if req.Name != nil {
		patch["name"] = *req.Name
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Color != nil {
		patch["color"] = *req.Color
	}
	if req.Position != nil {
		patch["position"] = *req.Position
	}

	data, err := c.patch(ctx, tableBoards, "id", id, patch)
	if err != nil {
		return nil, fmt.Errorf("update board %s: %w", id, err)
	}
	return firstBoard(data, id)
}

func (c *Client) SetBoardActive(ctx context.Context, id string, active bool) (*board.Board, error) {
	data, err := c.patch(ctx, tableBoards, "id", id, map[string]any{
		"is_active":  active,
		"updated_at": c.timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("set board %s active=%t: %w", id, active, err)
	}
	return firstBoard(data, id)
}

// --- Cards ---

func (c *Client) ListCardsByBoard(ctx context.Context, boardID string) ([]card.Card, error) {
	q := url.Values{}
	q.Set("board_id", eq(boardID))
	q.Set("is_active", eqBool(true))
	q.Set("order", "position.asc")
	return c.listCards(ctx, q, "list cards by board")
}

func (c *Client) ListActiveCards(ctx context.Context) ([]card.Card, error) {
	q := url.Values{}
	q.Set("is_active", eqBool(true))
	q.Set("order", "priority.asc")
	return c.listCards(ctx, q, "list active cards")
}

func (c *Client) ListAllCards(ctx context.Context, boardID string) ([]card.Card, error) {
	q := url.Values{}
	if boardID != "" {
		q.Set("board_id", eq(boardID))
	}
	return c.listCards(ctx, q, "list all cards")
}

func (c *Client) ListOpenCards(ctx context.Context) ([]card.Card, error) {
	q := url.Values{}
	q.Set("status", "neq.done")
	q.Set("order", "priority.asc")
	return c.listCards(ctx, q, "list open cards")
}

func (c *Client) listCards(ctx context.Context, q url.Values, op string) ([]card.Card, error) {
	data, err := c.doRequest(ctx, http.MethodGet, tableCards, q, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cards []card.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("unmarshal cards: %w", err)
	}
	return cards, nil
}

func (c *Client) GetCard(ctx context.Context, id string) (*card.Card, error) {
	q := url.Values{}
	q.Set("id", eq(id))

	data, err := c.doRequest(ctx, http.MethodGet, tableCards, q, nil)
	if err != nil {
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	return firstCard(data, id)
}

func (c *Client) CreateCard(ctx context.Context, req card.CreateRequest) (*card.Card, error) {
	now := c.timestamp()
	body, err := json.Marshal(cardInsert(req, now))
	if err != nil {
		return nil, fmt.Errorf("marshal card: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, tableCards, nil, body)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return firstCard(data, "")
}

// cardInsert builds the insert payload for a card, applying defaults the
// same way a create request from the board UI would.
func cardInsert(req card.CreateRequest, now string) map[string]any {
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
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	insert := map[string]any{
		"board_id":        req.BoardID,
		"title":           req.Title,
		"description":     req.Description,
		"status":          status,
		"priority":        priority,
		"priority_reason": req.PriorityReason,
		"estimated_hours": req.EstimatedHours,
		"actual_hours":    req.ActualHours,
		"position":        req.Position,
		"tags":            tags,
		"metadata":        metadata,
		"is_active":       true,
		"created_at":      now,
		"updated_at":      now,
	}
	if req.Deadline != "" {
		insert["deadline"] = req.Deadline
	}
	return insert
}

func (c *Client) UpdateCard(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
	patch := map[string]any{"updated_at": c.timestamp()}
	if req.BoardID != nil {
		patch["board_id"] = *req.BoardID
	}
	if req.Title != nil {
		patch["title"] = *req.Title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Status != nil {
		patch["status"] = *req.Status
	}
	if req.Priority != nil {
		patch["priority"] = *req.Priority
	}
	if req.PriorityReason != nil {
		patch["priority_reason"] = *req.PriorityReason
	}
	if req.EstimatedHours != nil {
		patch["estimated_hours"] = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		patch["actual_hours"] = *req.ActualHours
	}
	if req.Deadline != nil {
		patch["deadline"] = *req.Deadline
	}
	if req.Position != nil {
		patch["position"] = *req.Position
	}
	if req.Tags != nil {
		patch["tags"] = *req.Tags
	}
	if req.Metadata != nil {
		patch["metadata"] = *req.Metadata
	}

	data, err := c.patch(ctx, tableCards, "id", id, patch)
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	return firstCard(data, id)
}

func (c *Client) SetCardActive(ctx context.Context, id string, active bool) (*card.Card, error) {
	data, err := c.patch(ctx, tableCards, "id", id, map[string]any{
		"is_active":  active,
		"updated_at": c.timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("set card %s active=%t: %w", id, active, err)
	}
	return firstCard(data, id)
}

func (c *Client) SetCardsActiveByBoard(ctx context.Context, boardID string, active bool) error {
	// Matching zero rows is fine here; an empty board still archives.
	_, err := c.patch(ctx, tableCards, "board_id", boardID, map[string]any{
		"is_active":  active,
		"updated_at": c.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("set cards of board %s active=%t: %w", boardID, active, err)
	}
	return nil
}

func (c *Client) UpdateCardPriority(ctx context.Context, id string, priority int, reason string) error {
	_, err := c.patch(ctx, tableCards, "id", id, map[string]any{
		"priority":        priority,
		"priority_reason": reason,
		"updated_at":      c.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("update card %s priority: %w", id, err)
	}
	return nil
}

func (c *Client) UpdateCardPosition(ctx context.Context, id string, position int, status *card.Status) error {
	patch := map[string]any{
		"position":   position,
		"updated_at": c.timestamp(),
	}
	if status != nil {
		patch["status"] = *status
	}
	if _, err := c.patch(ctx, tableCards, "id", id, patch); err != nil {
		return fmt.Errorf("update card %s position: %w", id, err)
	}
	return nil
}

// --- Priority history ---

func (c *Client) InsertPriorityHistory(ctx context.Context, h card.PriorityHistory) error {
	body, err := json.Marshal(map[string]any{
		"card_id":      h.CardID,
		"old_priority": h.OldPriority,
		"new_priority": h.NewPriority,
		"reasoning":    h.Reasoning,
		"model_used":   h.ModelUsed,
		"timestamp":    h.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal priority history: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, tableHistory, nil, body); err != nil {
		return fmt.Errorf("insert priority history: %w", err)
	}
	return nil
}

// --- helpers ---

// patch issues a PATCH scoped by a single equality filter.
func (c *Client) patch(ctx context.Context, table, filterCol, filterVal string, fields map[string]any) ([]byte, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	q := url.Values{}
	q.Set(filterCol, eq(filterVal))
	return c.doRequest(ctx, http.MethodPatch, table, q, body)
}

// firstBoard returns the first element of a PostgREST row array, or
// domain.ErrNotFound when the array is empty.
func firstBoard(data []byte, id string) (*board.Board, error) {
	var boards []board.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
	}
	return &boards[0], nil
}

func firstCard(data []byte, id string) (*card.Card, error) {
	var cards []card.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("unmarshal card: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return &cards[0], nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canban-ai/canban/internal/domain"
	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
)

// Store implements datastore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

const boardCols = `id, name, description, color, position, is_active, created_at, updated_at`

const cardCols = `id, board_id, title, description, status, priority, priority_reason,
	estimated_hours, actual_hours, deadline, position, tags, metadata, is_active, created_at, updated_at`

// --- Boards ---

func (s *Store) ListBoards(ctx context.Context, active bool) ([]board.Board, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+boardCols+` FROM boards WHERE is_active = $1 ORDER BY position`, active)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []board.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *Store) ListAllBoards(ctx context.Context) ([]board.Board, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+boardCols+` FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("list all boards: %w", err)
	}
	defer rows.Close()

	var boards []board.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *Store) GetBoard(ctx context.Context, id string) (*board.Board, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+boardCols+` FROM boards WHERE id = $1`, id)

	b, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get board %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get board %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) CreateBoard(ctx context.Context, req board.CreateRequest) (*board.Board, error) {
	color := req.Color
	if color == "" {
		color = board.DefaultColor
	}
	now := s.now().UTC()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO boards (id, name, description, color, position, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		 RETURNING `+boardCols,
		uuid.NewString(), req.Name, req.Description, color, req.Position, now)

	b, err := scanBoard(row)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return &b, nil
}

func (s *Store) UpdateBoard(ctx context.Context, id string, req board.UpdateRequest) (*board.Board, error) {
	set, args := newSetClause(s.now().UTC())
	set.add("name", req.Name, &args)
	set.add("description", req.Description, &args)
	set.add("color", req.Color, &args)
	set.add("position", req.Position, &args)

	args = append(args, id)
	row := s.pool.QueryRow(ctx,
		`UPDATE boards SET `+set.String()+` WHERE id = $`+fmt.Sprint(len(args))+
			` RETURNING `+boardCols, args...)

	b, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update board %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update board %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) SetBoardActive(ctx context.Context, id string, active bool) (*board.Board, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE boards SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING `+boardCols,
		id, active, s.now().UTC())

	b, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("set board %s active: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("set board %s active: %w", id, err)
	}
	return &b, nil
}

// --- Cards ---

func (s *Store) ListCardsByBoard(ctx context.Context, boardID string) ([]card.Card, error) {
	return s.queryCards(ctx,
		`SELECT `+cardCols+` FROM cards WHERE board_id = $1 AND is_active = TRUE ORDER BY position`, boardID)
}

func (s *Store) ListActiveCards(ctx context.Context) ([]card.Card, error) {
	return s.queryCards(ctx,
		`SELECT `+cardCols+` FROM cards WHERE is_active = TRUE ORDER BY priority`)
}

func (s *Store) ListAllCards(ctx context.Context, boardID string) ([]card.Card, error) {
	if boardID != "" {
		return s.queryCards(ctx, `SELECT `+cardCols+` FROM cards WHERE board_id = $1`, boardID)
	}
	return s.queryCards(ctx, `SELECT `+cardCols+` FROM cards`)
}

func (s *Store) ListOpenCards(ctx context.Context) ([]card.Card, error) {
	return s.queryCards(ctx,
		`SELECT `+cardCols+` FROM cards WHERE status <> 'done' ORDER BY priority`)
}

func (s *Store) GetCard(ctx context.Context, id string) (*card.Card, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+cardCols+` FROM cards WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("get card %s: %w", id, domain.ErrNotFound)
	}
	c, err := scanCard(rows)
	if err != nil {
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) CreateCard(ctx context.Context, req card.CreateRequest) (*card.Card, error) {
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
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var deadline *string
	if req.Deadline != "" {
		deadline = &req.Deadline
	}

	now := s.now().UTC()
	rows, err := s.pool.Query(ctx,
		`INSERT INTO cards (id, board_id, title, description, status, priority, priority_reason,
		                    estimated_hours, actual_hours, deadline, position, tags, metadata,
		                    is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE, $14, $14)
		 RETURNING `+cardCols,
		uuid.NewString(), req.BoardID, req.Title, req.Description, status, priority,
		req.PriorityReason, req.EstimatedHours, req.ActualHours, deadline, req.Position,
		tags, metaJSON, now)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("create card: no row returned")
	}
	c, err := scanCard(rows)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return &c, nil
}

func (s *Store) UpdateCard(ctx context.Context, id string, req card.UpdateRequest) (*card.Card, error) {
	set, args := newSetClause(s.now().UTC())
	set.add("board_id", req.BoardID, &args)
	set.add("title", req.Title, &args)
	set.add("description", req.Description, &args)
	set.add("status", req.Status, &args)
	set.add("priority", req.Priority, &args)
	set.add("priority_reason", req.PriorityReason, &args)
	set.add("estimated_hours", req.EstimatedHours, &args)
	set.add("actual_hours", req.ActualHours, &args)
	set.add("deadline", req.Deadline, &args)
	set.add("position", req.Position, &args)
	set.add("tags", req.Tags, &args)
	if req.Metadata != nil {
		metaJSON, err := json.Marshal(*req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		raw := json.RawMessage(metaJSON)
		set.add("metadata", &raw, &args)
	}

	args = append(args, id)
	rows, err := s.pool.Query(ctx,
		`UPDATE cards SET `+set.String()+` WHERE id = $`+fmt.Sprint(len(args))+
			` RETURNING `+cardCols, args...)
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("update card %s: %w", id, domain.ErrNotFound)
	}
	c, err := scanCard(rows)
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) SetCardActive(ctx context.Context, id string, active bool) (*card.Card, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE cards SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING `+cardCols,
		id, active, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("set card %s active: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("set card %s active: %w", id, domain.ErrNotFound)
	}
	c, err := scanCard(rows)
	if err != nil {
		return nil, fmt.Errorf("set card %s active: %w", id, err)
	}
	return &c, nil
}

func (s *Store) SetCardsActiveByBoard(ctx context.Context, boardID string, active bool) error {
	// Zero rows affected is fine; an empty board still archives.
	_, err := s.pool.Exec(ctx,
		`UPDATE cards SET is_active = $2, updated_at = $3 WHERE board_id = $1`,
		boardID, active, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set cards of board %s active: %w", boardID, err)
	}
	return nil
}

func (s *Store) UpdateCardPriority(ctx context.Context, id string, priority int, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE cards SET priority = $2, priority_reason = $3, updated_at = $4 WHERE id = $1`,
		id, priority, reason, s.now().UTC())
	if err != nil {
		return fmt.Errorf("update card %s priority: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateCardPosition(ctx context.Context, id string, position int, status *card.Status) error {
	var err error
	if status != nil {
		_, err = s.pool.Exec(ctx,
			`UPDATE cards SET position = $2, status = $3, updated_at = $4 WHERE id = $1`,
			id, position, *status, s.now().UTC())
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE cards SET position = $2, updated_at = $3 WHERE id = $1`,
			id, position, s.now().UTC())
	}
	if err != nil {
		return fmt.Errorf("update card %s position: %w", id, err)
	}
	return nil
}

// --- Priority history ---

func (s *Store) InsertPriorityHistory(ctx context.Context, h card.PriorityHistory) error {
	id := h.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO priority_history (id, card_id, old_priority, new_priority, reasoning, model_used, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, h.CardID, h.OldPriority, h.NewPriority, h.Reasoning, h.ModelUsed, h.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert priority history: %w", err)
	}
	return nil
}

// --- helpers ---

func (s *Store) queryCards(ctx context.Context, sql string, args ...any) ([]card.Card, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func scanBoard(row pgx.Row) (board.Board, error) {
	var b board.Board
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Color, &b.Position,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanCard(row pgx.Row) (card.Card, error) {
	var (
		c        card.Card
		deadline *string
		metaJSON []byte
	)
	err := row.Scan(&c.ID, &c.BoardID, &c.Title, &c.Description, &c.Status, &c.Priority,
		&c.PriorityReason, &c.EstimatedHours, &c.ActualHours, &deadline, &c.Position,
		&c.Tags, &metaJSON, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if deadline != nil {
		c.Deadline = *deadline
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
			return c, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return c, nil
}

// setClause accumulates "col = $n" fragments for a partial UPDATE.
// updated_at is always the first assignment.
type setClause struct {
	frags []string
}

func newSetClause(now time.Time) (setClause, []any) {
	return setClause{frags: []string{"updated_at = $1"}}, []any{now}
}

// add appends an assignment when the typed pointer is non-nil.
func (sc *setClause) add(col string, val any, args *[]any) {
	switch v := val.(type) {
	case *string:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	case *int:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	case *float64:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	case *card.Status:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	case *[]string:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	case *json.RawMessage:
		if v == nil {
			return
		}
		*args = append(*args, *v)
	default:
		return
	}
	sc.frags = append(sc.frags, fmt.Sprintf("%s = $%d", col, len(*args)))
}

func (sc *setClause) String() string {
	return strings.Join(sc.frags, ", ")
}

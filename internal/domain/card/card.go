// Package card defines the Card domain entity and its request shapes.
package card

import "time"

// Status represents the workflow column a card sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority bounds. 1 is the highest priority, 5 the lowest.
const (
	PriorityMin = 1
	PriorityMax = 5
	// PriorityDefault is assigned when a card is created without one.
	PriorityDefault = 3
)

// Card represents a single task on a board.
//
// Deadline is kept as the raw string the store returns. AI-extracted cards may
// carry natural-language deadlines; values that do not parse as RFC 3339 are
// tolerated everywhere and simply never classified as overdue.
type Card struct {
	ID             string         `json:"id"`
	BoardID        string         `json:"board_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Status         Status         `json:"status"`
	Priority       int            `json:"priority"`
	PriorityReason string         `json:"priority_reason,omitempty"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty"`
	ActualHours    *float64       `json:"actual_hours,omitempty"`
	Deadline       string         `json:"deadline,omitempty"`
	Position       int            `json:"position"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new card.
type CreateRequest struct {
	BoardID        string         `json:"board_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Status         Status         `json:"status,omitempty"`
	Priority       int            `json:"priority,omitempty"`
	PriorityReason string         `json:"priority_reason,omitempty"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty"`
	ActualHours    *float64       `json:"actual_hours,omitempty"`
	Deadline       string         `json:"deadline,omitempty"`
	Position       int            `json:"position"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UpdateRequest is a partial card update. Nil fields are left unchanged.
type UpdateRequest struct {
	BoardID        *string         `json:"board_id,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Status         *Status         `json:"status,omitempty"`
	Priority       *int            `json:"priority,omitempty"`
	PriorityReason *string         `json:"priority_reason,omitempty"`
	EstimatedHours *float64        `json:"estimated_hours,omitempty"`
	ActualHours    *float64        `json:"actual_hours,omitempty"`
	Deadline       *string         `json:"deadline,omitempty"`
	Position       *int            `json:"position,omitempty"`
	Tags           *[]string       `json:"tags,omitempty"`
	Metadata       *map[string]any `json:"metadata,omitempty"`
}

// MoveRequest changes a card's status, position or board.
type MoveRequest struct {
	Status   *Status `json:"status,omitempty"`
	Position *int    `json:"position,omitempty"`
	BoardID  *string `json:"board_id,omitempty"`
}

// ReorderEntry is one element of a bulk position update.
type ReorderEntry struct {
	ID       string  `json:"id"`
	Position int     `json:"position"`
	Status   *Status `json:"status,omitempty"`
}

// PriorityHistory is an append-only audit row recording a priority change
// made by an AI prioritization pass. OldPriority is nil on first assignment.
type PriorityHistory struct {
	ID          string    `json:"id"`
	CardID      string    `json:"card_id"`
	OldPriority *int      `json:"old_priority"`
	NewPriority int       `json:"new_priority"`
	Reasoning   string    `json:"reasoning"`
	ModelUsed   string    `json:"model_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExtractedTask is a task pulled out of free text by the model. It is not
// persisted until the client approves it via create-extracted-tasks.
type ExtractedTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Deadline       string   `json:"deadline,omitempty"`
	Priority       int      `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Tags           []string `json:"tags"`
	BoardID        string   `json:"board_id,omitempty"`
	Status         Status   `json:"status,omitempty"`
	Position       int      `json:"position"`
}

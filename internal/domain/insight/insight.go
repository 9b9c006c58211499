// Package insight defines the result shapes produced by the AI operations.
package insight

import "github.com/canban-ai/canban/internal/domain/card"

// PriorityUpdate is one entry of the model's prioritization output.
type PriorityUpdate struct {
	ID        string `json:"id"`
	Priority  int    `json:"priority"`
	Reasoning string `json:"reasoning"`
}

// PrioritizeResult reports the outcome of a prioritization pass.
type PrioritizeResult struct {
	CardsUpdated int              `json:"cards_updated"`
	Priorities   []PriorityUpdate `json:"priorities"`
}

// Suggestions holds actionable next steps for a single card.
type Suggestions struct {
	Suggestions []string `json:"suggestions"`
	Reasoning   string   `json:"reasoning"`
}

// BriefingCard is the compact card summary embedded in a daily briefing.
type BriefingCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority int    `json:"priority,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// Briefing is the daily briefing response.
type Briefing struct {
	Date              string         `json:"date"`
	HighPriorityTasks []BriefingCard `json:"high_priority_tasks"`
	OverdueTasks      []BriefingCard `json:"overdue_tasks"`
	Suggestions       []string       `json:"suggestions"`
	Summary           string         `json:"summary"`
}

// Extraction is the result of pulling tasks out of free text.
type Extraction struct {
	Tasks   []card.ExtractedTask `json:"tasks"`
	Summary string               `json:"summary"`
}

// CreatedTasks reports which extracted tasks were materialized as cards.
type CreatedTasks struct {
	CreatedCount int         `json:"created_count"`
	Cards        []card.Card `json:"cards"`
}

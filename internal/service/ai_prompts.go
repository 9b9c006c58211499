package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/canban-ai/canban/internal/domain/card"
)

const (
	prioritizeSystemPrompt = "You are a task prioritization expert. Output only valid JSON."
	suggestSystemPrompt    = "You are a productivity assistant. Output only valid JSON."
	briefingSystemPrompt   = "You are a productivity coach. Be concise and actionable. Output only valid JSON."
	extractSystemPrompt    = "You are an expert at extracting tasks from unstructured text. Output only valid JSON."
)

// promptCard is the card summary embedded in the prioritization prompt.
type promptCard struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Board           string   `json:"board"`
	Status          string   `json:"status"`
	CurrentPriority int      `json:"current_priority"`
	Deadline        *string  `json:"deadline"`
	EstimatedHours  *float64 `json:"estimated_hours"`
	Tags            []string `json:"tags"`
	CreatedAt       string   `json:"created_at"`
}

func buildPrioritizePrompt(cards []card.Card, boardNames map[string]string, now time.Time) (string, error) {
	info := make([]promptCard, 0, len(cards))
	for _, c := range cards {
		boardName, ok := boardNames[c.BoardID]
		if !ok {
			boardName = "Unknown"
		}
		info = append(info, promptCard{
			ID:              c.ID,
			Title:           c.Title,
			Description:     c.Description,
			Board:           boardName,
			Status:          string(c.Status),
			CurrentPriority: c.Priority,
			Deadline:        nullable(c.Deadline),
			EstimatedHours:  c.EstimatedHours,
			Tags:            c.Tags,
			CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are a task prioritization assistant. Analyze these tasks and assign priority levels (1-5, where 1 is highest priority).

Current date: %s

Consider these factors:
1. Deadline proximity (highest weight)
2. Task complexity and estimated time
3. Dependencies and blocking tasks
4. Current status (in_progress tasks may need attention)
5. Task age (older tasks might be neglected)

Tasks to prioritize:
%s

Respond with a JSON array of objects with this exact structure:
[
  {"id": "card-id", "priority": 1-5, "reasoning": "Brief explanation"}
]

Only output the JSON array, no other text.`, now.Format(time.RFC3339), infoJSON), nil
}

func buildSuggestPrompt(c *card.Card) string {
	description := c.Description
	if description == "" {
		description = "No description"
	}
	deadline := c.Deadline
	if deadline == "" {
		deadline = "No deadline"
	}
	estimated := "Not estimated"
	if c.EstimatedHours != nil {
		estimated = fmt.Sprintf("%g", *c.EstimatedHours)
	}

	return fmt.Sprintf(`Analyze this task and provide actionable suggestions:

Task: %s
Description: %s
Status: %s
Priority: %d/5
Deadline: %s
Estimated hours: %s
Tags: %s

Provide 2-4 brief, actionable suggestions to help complete this task effectively.
Consider: breaking down the task, time management, potential blockers, and prioritization.

Respond with JSON:
{"suggestions": ["suggestion 1", "suggestion 2"], "reasoning": "Brief overall assessment"}`,
		c.Title, description, c.Status, c.Priority, deadline, estimated, strings.Join(c.Tags, ", "))
}

// briefingPromptCard is the card summary embedded in the briefing prompt.
type briefingPromptCard struct {
	Title    string  `json:"title"`
	Board    string  `json:"board"`
	Priority int     `json:"priority"`
	Deadline *string `json:"deadline"`
	Status   string  `json:"status"`
}

func buildBriefingPrompt(cards []card.Card, boardNames map[string]string, highCount, overdueCount int, now time.Time) (string, error) {
	limit := briefingCardLimit
	if limit > len(cards) {
		limit = len(cards)
	}
	summary := make([]briefingPromptCard, 0, limit)
	for _, c := range cards[:limit] {
		boardName, ok := boardNames[c.BoardID]
		if !ok {
			boardName = "Unknown"
		}
		summary = append(summary, briefingPromptCard{
			Title:    c.Title,
			Board:    boardName,
			Priority: c.Priority,
			Deadline: nullable(c.Deadline),
			Status:   string(c.Status),
		})
	}

	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Generate a brief daily briefing for these tasks.

Current date: %s

Active tasks:
%s

High priority count: %d
Overdue count: %d

Provide:
1. A 2-3 sentence summary of the day's focus
2. Top 3 actionable suggestions for productivity

Respond with JSON:
{"summary": "...", "suggestions": ["...", "...", "..."]}`,
		now.Format("2006-01-02 15:04"), summaryJSON, highCount, overdueCount), nil
}

func buildExtractPrompt(text, boardName string, now time.Time) string {
	return fmt.Sprintf(`You are a task extraction assistant. Extract actionable tasks from the following text.

Current date: %s
Board/Context: %s

Text to analyze:
"""
%s
"""

For each task found, extract:
1. title: Clear, concise task title (max 100 chars)
2. description: Additional details if available
3. deadline: ISO date string if mentioned (interpret "next Tuesday", "Dec 15", etc.), null if not mentioned
4. priority: 1-5 based on urgency words (urgent=1, important=2, normal=3, low=4, minimal=5)
5. estimated_hours: Rough estimate based on complexity, null if unclear
6. tags: Relevant tags extracted from context (e.g., "essay", "reading", "meeting", "research")

Respond with JSON:
{
  "tasks": [
    {
      "title": "Task title",
      "description": "Details or null",
      "deadline": "2024-12-15T23:59:00Z or null",
      "priority": 3,
      "estimated_hours": 2.0 or null,
      "tags": ["tag1", "tag2"]
    }
  ],
  "summary": "Brief summary of what was extracted"
}

Extract ALL actionable items. Be thorough but avoid duplicates. Output only valid JSON.`,
		now.Format("2006-01-02"), boardName, text)
}

// nullable maps an empty string to a JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

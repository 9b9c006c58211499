package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/canban-ai/canban/internal/adapter/openai"
	"github.com/canban-ai/canban/internal/adapter/otel"
	"github.com/canban-ai/canban/internal/domain"
	"github.com/canban-ai/canban/internal/domain/board"
	"github.com/canban-ai/canban/internal/domain/card"
	"github.com/canban-ai/canban/internal/domain/insight"
	"github.com/canban-ai/canban/internal/port/datastore"
	"github.com/canban-ai/canban/internal/port/messagequeue"
)

// briefingCardLimit caps how many cards are embedded in the briefing prompt.
const briefingCardLimit = 20

// highPriorityResponseLimit caps the high-priority list in the briefing response.
const highPriorityResponseLimit = 5

// maxExtractTextLen caps user-supplied free text before it is embedded in a prompt.
const maxExtractTextLen = 10000

// llmGateway is the slice of the chat client the AI service needs.
type llmGateway interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// AIService drives the model-assisted operations: prioritization, per-card
// suggestions, the daily briefing, and task extraction.
type AIService struct {
	store   datastore.Store
	llm     llmGateway
	queue   messagequeue.Queue // nil when events are disabled
	model   string
	metrics *otel.Metrics // nil when telemetry is disabled
	now     func() time.Time
}

// NewAIService creates an AIService. metrics and queue may be nil.
func NewAIService(store datastore.Store, llm llmGateway, queue messagequeue.Queue, model string, metrics *otel.Metrics) *AIService {
	return &AIService{
		store:   store,
		llm:     llm,
		queue:   queue,
		model:   model,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *AIService) SetNow(now func() time.Time) {
	s.now = now
}

// Prioritize asks the model to re-rank every card (optionally scoped to one
// board) and writes the resulting priorities back, recording a history row
// for each card whose priority actually changed.
func (s *AIService) Prioritize(ctx context.Context, boardID string) (*insight.PrioritizeResult, error) {
	var (
		cards  []card.Card
		boards []board.Board
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = s.store.ListAllCards(gctx, boardID)
		return err
	})
	g.Go(func() error {
		var err error
		boards, err = s.store.ListAllBoards(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(cards) == 0 {
		return &insight.PrioritizeResult{CardsUpdated: 0, Priorities: []insight.PriorityUpdate{}}, nil
	}

	ctx, span := otel.StartPrioritizeSpan(ctx, boardID, len(cards))
	defer span.End()

	boardNames := make(map[string]string, len(boards))
	for _, b := range boards {
		boardNames[b.ID] = b.Name
	}

	prompt, err := buildPrioritizePrompt(cards, boardNames, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("build prioritize prompt: %w", err)
	}

	content, err := s.chat(ctx, prioritizeSystemPrompt, prompt, 0.3, 2000)
	if err != nil {
		return nil, fmt.Errorf("ai prioritization: %w", err)
	}

	var priorities []insight.PriorityUpdate
	if err := json.Unmarshal([]byte(extractJSON(content)), &priorities); err != nil {
		return nil, fmt.Errorf("parse prioritization (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
	}
	for _, p := range priorities {
		if p.ID == "" || p.Priority < card.PriorityMin || p.Priority > card.PriorityMax {
			return nil, fmt.Errorf("priority update %+v out of range: %w", p, domain.ErrMalformedResponse)
		}
	}

	known := make(map[string]card.Card, len(cards))
	for _, c := range cards {
		known[c.ID] = c
	}

	changed := 0
	now := s.now().UTC()
	for _, p := range priorities {
		oldPriority := card.PriorityDefault
		if c, ok := known[p.ID]; ok {
			oldPriority = c.Priority
		}

		if oldPriority != p.Priority {
			old := oldPriority
			h := card.PriorityHistory{
				CardID:      p.ID,
				OldPriority: &old,
				NewPriority: p.Priority,
				Reasoning:   p.Reasoning,
				ModelUsed:   s.model,
				Timestamp:   now,
			}
			if err := s.store.InsertPriorityHistory(ctx, h); err != nil {
				return nil, fmt.Errorf("record priority history for %s: %w", p.ID, err)
			}
			changed++
			s.publish(ctx, messagequeue.SubjectCardPriority, priorityEvent{
				CardID:      p.ID,
				OldPriority: oldPriority,
				NewPriority: p.Priority,
			})
		}

		if err := s.store.UpdateCardPriority(ctx, p.ID, p.Priority, p.Reasoning); err != nil {
			return nil, fmt.Errorf("update priority for %s: %w", p.ID, err)
		}
	}

	if s.metrics != nil {
		s.metrics.PrioritizeRuns.Add(ctx, 1)
		s.metrics.CardsReprioritized.Add(ctx, int64(changed))
	}

	return &insight.PrioritizeResult{
		CardsUpdated: len(priorities),
		Priorities:   priorities,
	}, nil
}

// Suggest returns actionable suggestions for a single card. Nothing is
// persisted.
func (s *AIService) Suggest(ctx context.Context, cardID string) (*insight.Suggestions, error) {
	c, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartSuggestSpan(ctx, cardID)
	defer span.End()

	content, err := s.chat(ctx, suggestSystemPrompt, buildSuggestPrompt(c), 0.5, 500)
	if err != nil {
		return nil, fmt.Errorf("ai suggestions: %w", err)
	}

	var result insight.Suggestions
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("parse suggestions (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
	}
	if result.Suggestions == nil {
		return nil, fmt.Errorf("suggestions key missing (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
	}
	return &result, nil
}

// DailyBriefing summarizes the open cards. The high-priority/overdue
// partition is computed locally; only the narrative summary and suggestions
// come from the model, and any model failure degrades to a fixed fallback
// instead of failing the request.
func (s *AIService) DailyBriefing(ctx context.Context) (*insight.Briefing, error) {
	var (
		cards  []card.Card
		boards []board.Board
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = s.store.ListOpenCards(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		boards, err = s.store.ListAllBoards(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ctx, span := otel.StartBriefingSpan(ctx)
	defer span.End()

	now := s.now().UTC()

	var high, overdue []card.Card
	for _, c := range cards {
		if c.Priority <= 2 {
			high = append(high, c)
		}
		if c.Deadline == "" {
			continue
		}
		// Natural-language deadlines never parse and are never overdue.
		deadline, ok := parseDeadline(c.Deadline)
		if !ok {
			continue
		}
		if deadline.Before(now) {
			overdue = append(overdue, c)
		}
	}

	briefing := &insight.Briefing{
		Date:              now.Format("2006-01-02"),
		HighPriorityTasks: briefingCards(high, highPriorityResponseLimit, false),
		OverdueTasks:      briefingCards(overdue, len(overdue), true),
	}

	boardNames := make(map[string]string, len(boards))
	for _, b := range boards {
		boardNames[b.ID] = b.Name
	}

	prompt, err := buildBriefingPrompt(cards, boardNames, len(high), len(overdue), now)
	if err == nil {
		var content string
		content, err = s.chat(ctx, briefingSystemPrompt, prompt, 0.5, 500)
		if err == nil {
			var ai struct {
				Summary     string   `json:"summary"`
				Suggestions []string `json:"suggestions"`
			}
			err = json.Unmarshal([]byte(extractJSON(content)), &ai)
			if err == nil && ai.Suggestions == nil {
				err = fmt.Errorf("suggestions key missing (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
			}
			if err == nil {
				briefing.Summary = ai.Summary
				briefing.Suggestions = ai.Suggestions
			}
		}
	}
	if err != nil {
		slog.Warn("daily briefing degraded to fallback", "error", err)
		if s.metrics != nil {
			s.metrics.BriefingFallbacks.Add(ctx, 1)
		}
		briefing.Suggestions = []string{
			"Review your high-priority tasks first",
			"Check for any overdue items",
		}
		briefing.Summary = fmt.Sprintf("You have %d high-priority tasks and %d overdue items.", len(high), len(overdue))
	}

	return briefing, nil
}

// ExtractTasks pulls actionable tasks out of free text. Nothing is persisted;
// the caller approves the result via CreateExtractedTasks.
func (s *AIService) ExtractTasks(ctx context.Context, text, boardID string) (*insight.Extraction, error) {
	boardName := "Unknown"
	if boardID != "" {
		b, err := s.store.GetBoard(ctx, boardID)
		switch {
		case err == nil:
			boardName = b.Name
		case errors.Is(err, domain.ErrNotFound):
			// Extraction still works against an unknown board.
		default:
			return nil, err
		}
	}

	ctx, span := otel.StartExtractSpan(ctx, boardID, len(text))
	defer span.End()

	prompt := buildExtractPrompt(truncate(text, maxExtractTextLen), boardName, s.now().UTC())
	content, err := s.chat(ctx, extractSystemPrompt, prompt, 0.3, 2000)
	if err != nil {
		return nil, fmt.Errorf("ai task extraction: %w", err)
	}

	var result insight.Extraction
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return nil, fmt.Errorf("parse extraction (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
	}
	if result.Tasks == nil {
		return nil, fmt.Errorf("tasks key missing (content: %s): %w", truncate(content, 200), domain.ErrMalformedResponse)
	}

	for i := range result.Tasks {
		result.Tasks[i].BoardID = boardID
		result.Tasks[i].Status = card.StatusTodo
		result.Tasks[i].Position = 0
	}

	if s.metrics != nil {
		s.metrics.TasksExtracted.Add(ctx, int64(len(result.Tasks)))
	}
	return &result, nil
}

// CreateExtractedTasks materializes approved extracted tasks as cards. A
// failing insert is logged and skipped; the rest of the batch still lands.
func (s *AIService) CreateExtractedTasks(ctx context.Context, tasks []card.ExtractedTask) (*insight.CreatedTasks, error) {
	created := make([]card.Card, 0, len(tasks))
	for _, t := range tasks {
		c, err := s.store.CreateCard(ctx, card.CreateRequest{
			BoardID:        t.BoardID,
			Title:          t.Title,
			Description:    t.Description,
			Status:         t.Status,
			Priority:       t.Priority,
			EstimatedHours: t.EstimatedHours,
			Deadline:       t.Deadline,
			Position:       t.Position,
			Tags:           t.Tags,
			Metadata:       map[string]any{"source": "ai_extraction"},
		})
		if err != nil {
			slog.Warn("extracted task insert failed", "title", t.Title, "error", err)
			continue
		}
		created = append(created, *c)
	}

	if len(created) > 0 {
		s.publish(ctx, messagequeue.SubjectTasksExtracted, extractedEvent{CreatedCount: len(created)})
	}
	return &insight.CreatedTasks{CreatedCount: len(created), Cards: created}, nil
}

// chat sends a system+user prompt pair and returns the raw content.
func (s *AIService) chat(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	start := s.now()
	resp, err := s.llm.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if s.metrics != nil {
		s.metrics.LLMCalls.Add(ctx, 1)
		s.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			s.metrics.LLMFailures.Add(ctx, 1)
		}
	}
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

type priorityEvent struct {
	CardID      string `json:"card_id"`
	OldPriority int    `json:"old_priority"`
	NewPriority int    `json:"new_priority"`
}

type extractedEvent struct {
	CreatedCount int `json:"created_count"`
}

func (s *AIService) publish(ctx context.Context, subject string, payload any) {
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

// briefingCards converts up to limit cards into the compact briefing shape.
func briefingCards(cards []card.Card, limit int, withDeadline bool) []insight.BriefingCard {
	if limit > len(cards) {
		limit = len(cards)
	}
	out := make([]insight.BriefingCard, 0, limit)
	for _, c := range cards[:limit] {
		bc := insight.BriefingCard{ID: c.ID, Title: c.Title}
		if withDeadline {
			bc.Deadline = c.Deadline
		} else {
			bc.Priority = c.Priority
		}
		out = append(out, bc)
	}
	return out
}

// extractJSON strips a markdown code fence (with optional language tag) from
// a model response and returns the trimmed remainder.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// Drop the fence line, language tag and all.
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	return s
}

// deadlineLayouts are the timestamp shapes stored deadlines come in: RFC 3339
// from the UI, plus zone-less and date-only values from imported cards.
var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDeadline(s string) (time.Time, bool) {
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

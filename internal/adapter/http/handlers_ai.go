package http

import (
	"net/http"

	"github.com/canban-ai/canban/internal/domain/card"
)

type prioritizeRequest struct {
	BoardID string `json:"board_id,omitempty"`
}

// PrioritizeCards triggers a model-driven re-ranking of cards.
func (h *Handlers) PrioritizeCards(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[prioritizeRequest](w, r)
	if !ok {
		return
	}

	result, err := h.AI.Prioritize(r.Context(), req.BoardID)
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type suggestRequest struct {
	CardID string `json:"card_id"`
}

// SuggestForCard returns model suggestions for one card.
func (h *Handlers) SuggestForCard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[suggestRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.CardID, "card_id") {
		return
	}

	result, err := h.AI.Suggest(r.Context(), req.CardID)
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DailyBriefing returns the model-assisted daily summary.
func (h *Handlers) DailyBriefing(w http.ResponseWriter, r *http.Request) {
	result, err := h.AI.DailyBriefing(r.Context())
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type extractTasksRequest struct {
	Text    string `json:"text"`
	BoardID string `json:"board_id"`
}

// ExtractTasks pulls actionable tasks out of pasted free text.
func (h *Handlers) ExtractTasks(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[extractTasksRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Text, "text") {
		return
	}

	result, err := h.AI.ExtractTasks(r.Context(), req.Text, req.BoardID)
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type createExtractedTasksRequest struct {
	Tasks []card.ExtractedTask `json:"tasks"`
}

// CreateExtractedTasks materializes approved extracted tasks as cards.
func (h *Handlers) CreateExtractedTasks(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createExtractedTasksRequest](w, r)
	if !ok {
		return
	}

	result, err := h.AI.CreateExtractedTasks(r.Context(), req.Tasks)
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package http

import (
	"net/http"

	"github.com/canban-ai/canban/internal/domain/card"
)

// ListCardsByBoard returns the active cards of one board ordered by position.
func (h *Handlers) ListCardsByBoard(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Cards.ListByBoard(r.Context(), urlParam(r, "boardID"))
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	if cards == nil {
		cards = []card.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// ListCards returns all active cards across boards ordered by priority.
func (h *Handlers) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Cards.ListActive(r.Context())
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	if cards == nil {
		cards = []card.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// CreateCard creates a new card.
func (h *Handlers) CreateCard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[card.CreateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Title, "title") {
		return
	}
	if !requireField(w, req.BoardID, "board_id") {
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	c, err := h.Cards.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetCard returns one card by ID.
func (h *Handlers) GetCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cards.Get(r.Context(), urlParam(r, "cardID"))
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCard applies a partial update to a card.
func (h *Handlers) UpdateCard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[card.UpdateRequest](w, r)
	if !ok {
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	c, err := h.Cards.Update(r.Context(), urlParam(r, "cardID"), req)
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCard soft-deletes a single card.
func (h *Handlers) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.Cards.Archive(r.Context(), urlParam(r, "cardID")); err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Card archived successfully"})
}

// MoveCard changes a card's status, position, or board.
func (h *Handlers) MoveCard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[card.MoveRequest](w, r)
	if !ok {
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	c, err := h.Cards.Move(r.Context(), urlParam(r, "cardID"), req)
	if err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ReorderCards applies a batch of position updates.
func (h *Handlers) ReorderCards(w http.ResponseWriter, r *http.Request) {
	entries, ok := readJSON[[]card.ReorderEntry](w, r)
	if !ok {
		return
	}

	if err := h.Cards.Reorder(r.Context(), entries); err != nil {
		writeDomainError(w, err, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Cards reordered successfully"})
}

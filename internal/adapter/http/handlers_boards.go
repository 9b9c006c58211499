package http

import (
	"net/http"

	"github.com/canban-ai/canban/internal/domain/board"
)

// ListBoards returns all active boards ordered by position.
func (h *Handlers) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.Boards.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	if boards == nil {
		boards = []board.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

// ListArchivedBoards returns all soft-deleted boards.
func (h *Handlers) ListArchivedBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.Boards.ListArchived(r.Context())
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	if boards == nil {
		boards = []board.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

// CreateBoard creates a new board.
func (h *Handlers) CreateBoard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[board.CreateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") {
		return
	}

	b, err := h.Boards.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GetBoard returns one board by ID.
func (h *Handlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.Boards.Get(r.Context(), urlParam(r, "boardID"))
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBoard applies a partial update to a board.
func (h *Handlers) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[board.UpdateRequest](w, r)
	if !ok {
		return
	}

	b, err := h.Boards.Update(r.Context(), urlParam(r, "boardID"), req)
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBoard soft-deletes a board and all its cards.
func (h *Handlers) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.Boards.Archive(r.Context(), urlParam(r, "boardID")); err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Board archived successfully"})
}

// RestoreBoard reactivates a soft-deleted board and all its cards.
func (h *Handlers) RestoreBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.Boards.Restore(r.Context(), urlParam(r, "boardID"))
	if err != nil {
		writeDomainError(w, err, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

package http

import (
	"net/http"

	"github.com/canban-ai/canban/internal/service"
)

// GetSettings reads the persisted credentials.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Load()
	if err != nil {
		writeDomainError(w, err, "Settings not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SaveSettings persists credentials to the well-known file.
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.Settings](w, r)
	if !ok {
		return
	}

	settings, err := h.Settings.Save(req)
	if err != nil {
		writeDomainError(w, err, "Settings not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

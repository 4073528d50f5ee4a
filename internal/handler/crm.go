package handler

import (
	"log/slog"
	"net/http"

	"github.com/mvallois/rendez/internal/model"
	"github.com/mvallois/rendez/internal/store"
)

// CRMHandler serves the client roster and statistics views, both derived from
// the appointment collection.
type CRMHandler struct {
	store  *store.AppointmentStore
	logger *slog.Logger
}

func NewCRMHandler(s *store.AppointmentStore, logger *slog.Logger) *CRMHandler {
	return &CRMHandler{store: s, logger: logger}
}

func (h *CRMHandler) Clients(w http.ResponseWriter, r *http.Request) {
	profile := model.Profile(r.URL.Query().Get("profile"))
	if profile != "" && !model.ValidProfile(profile) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown profile"})
		return
	}

	clients, err := h.store.ListClients(profile)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if clients == nil {
		clients = []store.ClientSummary{}
	}

	writeJSON(w, http.StatusOK, clients)
}

func (h *CRMHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

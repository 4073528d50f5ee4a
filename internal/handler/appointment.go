package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvallois/rendez/internal/email"
	"github.com/mvallois/rendez/internal/model"
	"github.com/mvallois/rendez/internal/reminder"
	"github.com/mvallois/rendez/internal/store"
	ws "github.com/mvallois/rendez/internal/websocket"
)

const notifyTimeout = 15 * time.Second

type AppointmentHandler struct {
	store     *store.AppointmentStore
	scheduler *reminder.Scheduler
	hub       *ws.Hub
	notifier  reminder.Notifier
	logger    *slog.Logger
}

func NewAppointmentHandler(s *store.AppointmentStore, sched *reminder.Scheduler, hub *ws.Hub, notifier reminder.Notifier, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{store: s, scheduler: sched, hub: hub, notifier: notifier, logger: logger}
}

type appointmentRequest struct {
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Kind            model.Kind    `json:"kind"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	Profile         model.Profile `json:"profile"`
	Location        string        `json:"location"`
	MeetingLink     string        `json:"meeting_link"`
	Notes           string        `json:"notes"`
	Summary         string        `json:"summary"`
	Status          model.Status  `json:"status"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	appt, err := h.store.Create(model.Appointment{
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Kind:            req.Kind,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Profile:         req.Profile,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
		Summary:         req.Summary,
		Status:          req.Status,
	})
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	// Arm before responding so scheduling state never trails stored state.
	h.scheduler.Arm(*appt)
	h.hub.Broadcast(ws.NewMessage("appointment", "created", appt.ID.String(), nil))
	h.notifyAsync(*appt, email.RenderConfirmation)

	writeJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter store.ListFilter

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := parseFlexibleTime(fromStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		filter.From = &from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := parseFlexibleTime(toStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		filter.To = &to
	}
	switch order := r.URL.Query().Get("order"); order {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order must be asc or desc"})
		return
	}

	appts, err := h.store.List(filter)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}

	writeJSON(w, http.StatusOK, appts)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	appt, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var patch model.AppointmentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	appt, err := h.store.Update(id, patch)
	if err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	// A changed date or recipient invalidates the armed snapshot: replace the
	// registration before responding. Re-arm never stacks.
	timeChanged := !appt.ScheduledAt.Equal(existing.ScheduledAt)
	if timeChanged || appt.Email != existing.Email {
		h.scheduler.Arm(*appt)
	}
	if timeChanged {
		h.notifyAsync(*appt, email.RenderReschedule)
	}

	h.hub.Broadcast(ws.NewMessage("appointment", "updated", appt.ID.String(), nil))
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeStoreError(w, h.logger, err)
		return
	}

	h.scheduler.Cancel(id)
	h.hub.Broadcast(ws.NewMessage("appointment", "deleted", id.String(), nil))
	w.WriteHeader(http.StatusNoContent)
}

// notifyAsync dispatches a courtesy email without blocking the request. A
// failed send is logged; the appointment itself is unaffected.
func (h *AppointmentHandler) notifyAsync(a model.Appointment, render reminder.RenderFunc) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		subject, textBody, htmlBody := render(a)
		if err := h.notifier.Send(ctx, a.Email, subject, textBody, htmlBody); err != nil {
			h.logger.Warn("notification email failed", "appointment_id", a.ID, "email", a.Email, "error", err)
		}
	}()
}

package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvallois/rendez/internal/email"
	"github.com/mvallois/rendez/internal/handler"
	"github.com/mvallois/rendez/internal/middleware"
	"github.com/mvallois/rendez/internal/reminder"
	"github.com/mvallois/rendez/internal/store"
	ws "github.com/mvallois/rendez/internal/websocket"
)

// Config holds the server-level knobs.
type Config struct {
	MeetingBaseURL  string
	ReminderOffset  time.Duration
	DispatchTimeout time.Duration

	// TrustProxyHeaders keys rate limits on X-Forwarded-For instead of the
	// connection address. Enable only behind a trusted reverse proxy.
	TrustProxyHeaders bool
}

type Server struct {
	db           *sql.DB
	cfg          Config
	hub          *ws.Hub
	appointmentH *handler.AppointmentHandler
	crmH         *handler.CRMHandler
	apptStore    *store.AppointmentStore
	scheduler    *reminder.Scheduler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, mailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	apptStore := store.NewAppointmentStore(db, cfg.MeetingBaseURL)

	scheduler := reminder.NewScheduler(
		reminder.Config{Offset: cfg.ReminderOffset, DispatchTimeout: cfg.DispatchTimeout},
		mailClient,
		email.RenderReminder,
		logger.With("component", "reminder"),
	)

	return &Server{
		db:           db,
		cfg:          cfg,
		hub:          hub,
		appointmentH: handler.NewAppointmentHandler(apptStore, scheduler, hub, mailClient, logger.With("component", "appointment")),
		crmH:         handler.NewCRMHandler(apptStore, logger.With("component", "crm")),
		apptStore:    apptStore,
		scheduler:    scheduler,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// AppointmentStore returns the store, used at startup to restore reminders.
func (s *Server) AppointmentStore() *store.AppointmentStore {
	return s.apptStore
}

// ReminderScheduler returns the scheduler for startup restore and shutdown.
func (s *Server) ReminderScheduler() *reminder.Scheduler {
	return s.scheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Appointment API routes
	mux.HandleFunc("POST /api/appointments", s.rateLimitedHandler(s.appointmentH.Create))
	mux.HandleFunc("GET /api/appointments", s.appointmentH.List)
	mux.HandleFunc("GET /api/appointments/{id}", s.appointmentH.Get)
	mux.HandleFunc("PUT /api/appointments/{id}", s.rateLimitedHandler(s.appointmentH.Update))
	mux.HandleFunc("DELETE /api/appointments/{id}", s.rateLimitedHandler(s.appointmentH.Delete))

	// CRM API routes
	mux.HandleFunc("GET /api/crm/clients", s.crmH.Clients)
	mux.HandleFunc("GET /api/stats", s.crmH.Stats)

	// WebSocket change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"), s.cfg.TrustProxyHeaders)(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.ClientIP(r, s.cfg.TrustProxyHeaders)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 60, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvallois/rendez/internal/model"
	"github.com/mvallois/rendez/internal/store"
)

// Notifier delivers a rendered message. Failures are reported, never
// propagated past the scheduler.
type Notifier interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// RenderFunc builds the reminder message from the appointment snapshot taken
// at arm time.
type RenderFunc func(a model.Appointment) (subject, textBody, htmlBody string)

// State is the reminder lifecycle of one appointment id.
type State string

const (
	StateUnarmed   State = "unarmed"
	StateArmed     State = "armed"
	StateFired     State = "fired"
	StateCancelled State = "cancelled"
)

// Config holds scheduler parameters.
type Config struct {
	// Offset is subtracted from the appointment time to compute the fire time.
	Offset time.Duration
	// DispatchTimeout bounds the notifier call at fire time.
	DispatchTimeout time.Duration
}

const defaultDispatchTimeout = 15 * time.Second

// stateRetention is how long terminal states (fired, cancelled, skipped)
// stay queryable. After that the entry is dropped and the id reads as
// unarmed again, keeping the table bounded by live registrations.
const stateRetention = time.Hour

type registration struct {
	timer *time.Timer
	appt  model.Appointment
}

type stateEntry struct {
	state State
	at    time.Time
}

// Scheduler keeps at most one pending reminder per live appointment. The
// registration table is keyed by appointment id; arming always replaces any
// prior registration for the same id.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	notifier Notifier
	render   RenderFunc
	logger   *slog.Logger
	timers   map[uuid.UUID]*registration
	states   map[uuid.UUID]stateEntry
	now      func() time.Time
}

func NewScheduler(cfg Config, notifier Notifier, render RenderFunc, logger *slog.Logger) *Scheduler {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	return &Scheduler{
		cfg:      cfg,
		notifier: notifier,
		render:   render,
		logger:   logger,
		timers:   make(map[uuid.UUID]*registration),
		states:   make(map[uuid.UUID]stateEntry),
		now:      time.Now,
	}
}

// Arm registers a one-shot reminder for the appointment at scheduledAt minus
// the configured offset. Any existing registration for the same id is replaced
// first. A fire time already in the past is skipped silently: the state
// becomes unarmed and no callback is registered.
func (s *Scheduler) Arm(a model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(a.ID)
	s.sweepLocked()

	fireAt := a.ScheduledAt.Add(-s.cfg.Offset)
	delay := fireAt.Sub(s.now())
	if delay <= 0 {
		s.setStateLocked(a.ID, StateUnarmed)
		return
	}

	reg := &registration{appt: a}
	reg.timer = time.AfterFunc(delay, func() { s.fire(a.ID, reg) })
	s.timers[a.ID] = reg
	s.setStateLocked(a.ID, StateArmed)
	s.logger.Debug("reminder armed", "appointment_id", a.ID, "fire_at", fireAt)
}

// Cancel removes any registration for the id. Cancelling an id with no
// registration is a no-op.
func (s *Scheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if s.cancelLocked(id) {
		s.setStateLocked(id, StateCancelled)
		s.logger.Debug("reminder cancelled", "appointment_id", id)
	}
}

func (s *Scheduler) cancelLocked(id uuid.UUID) bool {
	reg, ok := s.timers[id]
	if !ok {
		return false
	}
	reg.timer.Stop()
	delete(s.timers, id)
	return true
}

// State reports the reminder state for the id. Ids never armed, and ids
// whose terminal state has aged out, are unarmed.
func (s *Scheduler) State(id uuid.UUID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.states[id]; ok {
		return e.state
	}
	return StateUnarmed
}

func (s *Scheduler) setStateLocked(id uuid.UUID, st State) {
	s.states[id] = stateEntry{state: st, at: s.now()}
}

// sweepLocked drops terminal entries past retention. Armed entries always
// have a matching timer and are removed through cancel or fire instead.
func (s *Scheduler) sweepLocked() {
	cutoff := s.now().Add(-stateRetention)
	for id, e := range s.states {
		if e.state != StateArmed && e.at.Before(cutoff) {
			delete(s.states, id)
		}
	}
}

// Pending returns the number of armed registrations.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs on the timer goroutine. The registration identity check makes a
// racing Cancel or re-Arm win over an already-expired timer, so a replaced or
// cancelled reminder never dispatches.
func (s *Scheduler) fire(id uuid.UUID, reg *registration) {
	s.mu.Lock()
	current, ok := s.timers[id]
	if !ok || current != reg {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.setStateLocked(id, StateFired)
	s.mu.Unlock()

	a := reg.appt
	subject, textBody, htmlBody := s.render(a)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
	defer cancel()

	// At-most-once: a failed dispatch is logged, not retried.
	if err := s.notifier.Send(ctx, a.Email, subject, textBody, htmlBody); err != nil {
		s.logger.Error("reminder dispatch failed", "appointment_id", id, "email", a.Email, "error", err)
		return
	}
	s.logger.Info("reminder sent", "appointment_id", id, "email", a.Email)
}

// appointmentLister is the slice of the store the scheduler needs at startup.
type appointmentLister interface {
	List(f store.ListFilter) ([]model.Appointment, error)
}

// Restore re-arms reminders for every future appointment. Registrations live
// only in memory, so this must run once after process start.
func (s *Scheduler) Restore(appts appointmentLister) error {
	now := s.now()
	list, err := appts.List(store.ListFilter{From: &now})
	if err != nil {
		return err
	}
	for _, a := range list {
		s.Arm(a)
	}
	s.logger.Info("reminders restored", "appointments", len(list), "armed", s.Pending())
	return nil
}

// Stop cancels every pending registration. Used at shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reg := range s.timers {
		reg.timer.Stop()
		delete(s.timers, id)
	}
}

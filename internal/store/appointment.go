package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvallois/rendez/internal/model"
)

// DefaultMeetingBaseURL is the canonical template for generated video links.
const DefaultMeetingBaseURL = "https://meet.google.com"

const meetingCodeLen = 10

const appointmentColumns = `id, scheduled_at, duration_minutes, kind, first_name, last_name,
	email, phone, profile, location, meeting_link, notes, summary, status, created_at, updated_at`

// AppointmentStore is the single source of truth for appointment records.
type AppointmentStore struct {
	db             *sql.DB
	meetingBaseURL string
}

func NewAppointmentStore(db *sql.DB, meetingBaseURL string) *AppointmentStore {
	if meetingBaseURL == "" {
		meetingBaseURL = DefaultMeetingBaseURL
	}
	return &AppointmentStore{db: db, meetingBaseURL: strings.TrimRight(meetingBaseURL, "/")}
}

// Create validates and persists a new appointment. The id, timestamps, and
// (for video appointments without one) the meeting link are assigned here.
func (s *AppointmentStore) Create(a model.Appointment) (*model.Appointment, error) {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = model.StatusPending
	}
	if a.Kind == model.KindVideo && a.MeetingLink == "" {
		code, err := generateMeetingCode()
		if err != nil {
			return nil, fmt.Errorf("generate meeting code: %w", err)
		}
		a.MeetingLink = s.meetingBaseURL + "/" + code
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO appointments (`+appointmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ScheduledAt.UTC(), a.DurationMinutes, string(a.Kind), a.FirstName, a.LastName,
		a.Email, a.Phone, string(a.Profile), a.Location, a.MeetingLink, a.Notes, a.Summary,
		string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return s.GetByID(a.ID)
}

// GetByID returns the appointment or ErrNotFound.
func (s *AppointmentStore) GetByID(id uuid.UUID) (*model.Appointment, error) {
	row := s.db.QueryRow(
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id,
	)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query appointment: %w", err)
	}
	return a, nil
}

// ListFilter restricts and orders a List call. Nil bounds are open-ended.
type ListFilter struct {
	From       *time.Time
	To         *time.Time
	Descending bool
}

// List returns appointments ordered by scheduled time, optionally restricted
// to a date range.
func (s *AppointmentStore) List(f ListFilter) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var conds []string
	var args []any
	if f.From != nil {
		conds = append(conds, "scheduled_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "scheduled_at < ?")
		args = append(args, f.To.UTC())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.Descending {
		query += " ORDER BY scheduled_at DESC"
	} else {
		query += " ORDER BY scheduled_at ASC"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

// Update merges the patch into the stored record, re-validates the result,
// and refreshes updated_at. Only supplied fields change.
func (s *AppointmentStore) Update(id uuid.UUID, patch model.AppointmentPatch) (*model.Appointment, error) {
	a, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	patch.Apply(a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(
		`UPDATE appointments
		 SET scheduled_at = ?, duration_minutes = ?, kind = ?, first_name = ?, last_name = ?,
		     email = ?, phone = ?, profile = ?, location = ?, meeting_link = ?, notes = ?,
		     summary = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		a.ScheduledAt.UTC(), a.DurationMinutes, string(a.Kind), a.FirstName, a.LastName,
		a.Email, a.Phone, string(a.Profile), a.Location, a.MeetingLink, a.Notes,
		a.Summary, string(a.Status), a.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	return s.GetByID(id)
}

// Delete hard-removes the record. Deleting an unknown id returns ErrNotFound.
func (s *AppointmentStore) Delete(id uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM appointments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	var kind, profile, status string
	err := row.Scan(
		&a.ID, &a.ScheduledAt, &a.DurationMinutes, &kind, &a.FirstName, &a.LastName,
		&a.Email, &a.Phone, &profile, &a.Location, &a.MeetingLink, &a.Notes, &a.Summary,
		&status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Kind = model.Kind(kind)
	a.Profile = model.Profile(profile)
	a.Status = model.Status(status)
	return &a, nil
}

const meetingCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateMeetingCode returns an opaque 10-character lowercase alphanumeric
// meeting identifier.
func generateMeetingCode() (string, error) {
	buf := make([]byte, meetingCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = meetingCodeAlphabet[int(b)%len(meetingCodeAlphabet)]
	}
	return string(buf), nil
}

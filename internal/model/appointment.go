package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind describes how an appointment takes place.
type Kind string

const (
	KindInPerson Kind = "in_person"
	KindPhone    Kind = "phone"
	KindVideo    Kind = "video"
)

// Profile classifies the contact for CRM grouping.
type Profile string

const (
	ProfileLead     Profile = "lead"
	ProfileProspect Profile = "prospect"
	ProfileClient   Profile = "client"
	ProfileStaff    Profile = "staff"
	ProfilePartner  Profile = "partner"
)

// Status tracks the appointment workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Appointment struct {
	ID              uuid.UUID `json:"id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Kind            Kind      `json:"kind"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Profile         Profile   `json:"profile"`
	Location        string    `json:"location"`
	MeetingLink     string    `json:"meeting_link"`
	Notes           string    `json:"notes"`
	Summary         string    `json:"summary"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppointmentPatch carries a partial update. Nil fields are left unchanged.
type AppointmentPatch struct {
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Kind            *Kind      `json:"kind"`
	FirstName       *string    `json:"first_name"`
	LastName        *string    `json:"last_name"`
	Email           *string    `json:"email"`
	Phone           *string    `json:"phone"`
	Profile         *Profile   `json:"profile"`
	Location        *string    `json:"location"`
	MeetingLink     *string    `json:"meeting_link"`
	Notes           *string    `json:"notes"`
	Summary         *string    `json:"summary"`
	Status          *Status    `json:"status"`
}

// Apply merges the patch into the appointment.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.ScheduledAt != nil {
		a.ScheduledAt = *p.ScheduledAt
	}
	if p.DurationMinutes != nil {
		a.DurationMinutes = *p.DurationMinutes
	}
	if p.Kind != nil {
		a.Kind = *p.Kind
	}
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Profile != nil {
		a.Profile = *p.Profile
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.MeetingLink != nil {
		a.MeetingLink = *p.MeetingLink
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ValidKind reports whether k is a known appointment kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindInPerson, KindPhone, KindVideo:
		return true
	}
	return false
}

// ValidProfile reports whether p is a known contact profile.
func ValidProfile(p Profile) bool {
	switch p {
	case ProfileLead, ProfileProspect, ProfileClient, ProfileStaff, ProfilePartner:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Validate checks the invariants of a fully assembled appointment.
// ScheduledAt may be in the past; a past date simply never produces a reminder.
func (a *Appointment) Validate() error {
	if a.ScheduledAt.IsZero() {
		return invalid("scheduled_at", "is required")
	}
	if a.DurationMinutes <= 0 {
		return invalid("duration_minutes", "must be a positive integer")
	}
	if !ValidKind(a.Kind) {
		return invalid("kind", "must be one of in_person, phone, video")
	}
	if strings.TrimSpace(a.FirstName) == "" {
		return invalid("first_name", "is required")
	}
	if strings.TrimSpace(a.LastName) == "" {
		return invalid("last_name", "is required")
	}
	if !emailRegexp.MatchString(a.Email) {
		return invalid("email", "must be a valid email address")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return invalid("phone", "is required")
	}
	if !ValidProfile(a.Profile) {
		return invalid("profile", "must be one of lead, prospect, client, staff, partner")
	}
	if !ValidStatus(a.Status) {
		return invalid("status", "must be one of pending, confirmed, cancelled")
	}
	if a.Kind == KindInPerson && strings.TrimSpace(a.Location) == "" {
		return invalid("location", "is required for in-person appointments")
	}
	if a.Kind == KindVideo && a.MeetingLink == "" {
		return invalid("meeting_link", "is required for video appointments")
	}
	return nil
}

package store

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvallois/rendez/internal/database"
	"github.com/mvallois/rendez/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *AppointmentStore {
	t.Helper()
	return NewAppointmentStore(setupTestDB(t), "")
}

func testAppointment() model.Appointment {
	return model.Appointment{
		ScheduledAt:     time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		Kind:            model.KindPhone,
		FirstName:       "Louis",
		LastName:        "Petit",
		Email:           "louis.petit@example.com",
		Phone:           "+33611223344",
		Profile:         model.ProfileLead,
		Notes:           "first contact",
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(testAppointment())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
	if created.Status != model.StatusPending {
		t.Errorf("status = %s, want %s", created.Status, model.StatusPending)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := s.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "louis.petit@example.com" {
		t.Errorf("email = %q", got.Email)
	}
	if !got.ScheduledAt.Equal(created.ScheduledAt) {
		t.Errorf("scheduled_at = %v, want %v", got.ScheduledAt, created.ScheduledAt)
	}
	if got.Notes != "first contact" {
		t.Errorf("notes = %q", got.Notes)
	}
}

func TestCreateInvalidRejected(t *testing.T) {
	s := newTestStore(t)

	a := testAppointment()
	a.Email = "not-an-email"
	_, err := s.Create(a)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "email" {
		t.Errorf("field = %q, want email", ve.Field)
	}
}

func TestCreateInPersonRequiresLocation(t *testing.T) {
	s := newTestStore(t)

	a := testAppointment()
	a.Kind = model.KindInPerson
	if _, err := s.Create(a); err == nil {
		t.Fatal("expected validation error for in-person without location")
	}

	a.Location = "4 place Bellecour, Lyon"
	if _, err := s.Create(a); err != nil {
		t.Fatalf("create with location: %v", err)
	}
}

func TestCreateVideoGeneratesMeetingLink(t *testing.T) {
	s := newTestStore(t)

	a := testAppointment()
	a.Kind = model.KindVideo
	created, err := s.Create(a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	prefix := DefaultMeetingBaseURL + "/"
	if !strings.HasPrefix(created.MeetingLink, prefix) {
		t.Fatalf("meeting link = %q, want prefix %q", created.MeetingLink, prefix)
	}
	code := strings.TrimPrefix(created.MeetingLink, prefix)
	if len(code) != meetingCodeLen {
		t.Errorf("code length = %d, want %d", len(code), meetingCodeLen)
	}
	for _, r := range code {
		if !strings.ContainsRune(meetingCodeAlphabet, r) {
			t.Errorf("code %q contains %q outside alphabet", code, r)
		}
	}

	// A second video appointment gets its own code.
	other, err := s.Create(a)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other.MeetingLink == created.MeetingLink {
		t.Error("expected distinct meeting links")
	}
}

func TestCreateVideoKeepsSuppliedLink(t *testing.T) {
	s := newTestStore(t)

	a := testAppointment()
	a.Kind = model.KindVideo
	a.MeetingLink = "https://example.com/room/7"
	created, err := s.Create(a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.MeetingLink != "https://example.com/room/7" {
		t.Errorf("meeting link = %q, want caller's link kept", created.MeetingLink)
	}
}

func TestCreatePastDateAllowed(t *testing.T) {
	s := newTestStore(t)

	a := testAppointment()
	a.ScheduledAt = time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, err := s.Create(a); err != nil {
		t.Fatalf("past-dated create should succeed: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByID(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderingAndRange(t *testing.T) {
	s := newTestStore(t)

	times := []time.Time{
		time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		a := testAppointment()
		a.ScheduledAt = ts
		if _, err := s.Create(a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	asc, err := s.List(ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(asc) != 3 {
		t.Fatalf("len = %d, want 3", len(asc))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i].ScheduledAt.Before(asc[i-1].ScheduledAt) {
			t.Fatal("ascending order violated")
		}
	}

	desc, err := s.List(ListFilter{Descending: true})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if !desc[0].ScheduledAt.After(desc[2].ScheduledAt) {
		t.Fatal("descending order violated")
	}

	from := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC)
	ranged, err := s.List(ListFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	// To is exclusive, so the 9:00 Sep 20 appointment falls outside.
	if len(ranged) != 1 {
		t.Fatalf("range len = %d, want 1", len(ranged))
	}
	if !ranged[0].ScheduledAt.Equal(times[2]) {
		t.Errorf("range returned %v", ranged[0].ScheduledAt)
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)
	appts, err := s.List(ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 0 {
		t.Fatalf("len = %d, want 0", len(appts))
	}
}

func TestUpdateShallowMerge(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(testAppointment())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTime := time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)
	status := model.StatusConfirmed
	updated, err := s.Update(created.ID, model.AppointmentPatch{
		ScheduledAt: &newTime,
		Status:      &status,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !updated.ScheduledAt.Equal(newTime) {
		t.Errorf("scheduled_at = %v, want %v", updated.ScheduledAt, newTime)
	}
	if updated.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", updated.Status)
	}
	// Untouched fields survive the merge.
	if updated.Email != created.Email {
		t.Errorf("email changed: %q", updated.Email)
	}
	if updated.Notes != created.Notes {
		t.Errorf("notes changed: %q", updated.Notes)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("updated_at went backwards")
	}
}

func TestUpdateInvalidPatchRejected(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(testAppointment())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := "nope"
	_, err = s.Update(created.ID, model.AppointmentPatch{Email: &bad})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The stored record is untouched.
	got, err := s.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != created.Email {
		t.Errorf("email = %q, want unchanged", got.Email)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(uuid.New(), model.AppointmentPatch{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTwice(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(testAppointment())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestCustomMeetingBaseURL(t *testing.T) {
	s := NewAppointmentStore(setupTestDB(t), "https://video.example.org/")

	a := testAppointment()
	a.Kind = model.KindVideo
	created, err := s.Create(a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.MeetingLink, "https://video.example.org/") {
		t.Errorf("meeting link = %q", created.MeetingLink)
	}
	if strings.Contains(created.MeetingLink, ".org//") {
		t.Errorf("trailing slash not trimmed: %q", created.MeetingLink)
	}
}

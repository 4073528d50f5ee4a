package store

import (
	"fmt"
	"time"

	"github.com/mvallois/rendez/internal/model"
)

// ClientSummary is one contact, grouped across appointments by email. The
// most recent appointment supplies the reference contact details.
type ClientSummary struct {
	Email           string        `json:"email"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Phone           string        `json:"phone"`
	Profile         model.Profile `json:"profile"`
	LastScheduledAt time.Time     `json:"last_scheduled_at"`
	Appointments    int           `json:"appointments"`
}

// ListClients groups appointments by contact email, most recently seen first.
// An empty profile returns all clients.
func (s *AppointmentStore) ListClients(profile model.Profile) ([]ClientSummary, error) {
	appts, err := s.List(ListFilter{Descending: true})
	if err != nil {
		return nil, err
	}

	// The list is newest-first, so the first appointment seen per email is the
	// client's reference record.
	index := make(map[string]int)
	var clients []ClientSummary
	for _, a := range appts {
		if i, ok := index[a.Email]; ok {
			clients[i].Appointments++
			continue
		}
		index[a.Email] = len(clients)
		clients = append(clients, ClientSummary{
			Email:           a.Email,
			FirstName:       a.FirstName,
			LastName:        a.LastName,
			Phone:           a.Phone,
			Profile:         a.Profile,
			LastScheduledAt: a.ScheduledAt,
			Appointments:    1,
		})
	}

	if profile == "" {
		return clients, nil
	}
	var filtered []ClientSummary
	for _, c := range clients {
		if c.Profile == profile {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// MonthCount is the number of appointments scheduled in one calendar month.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Stats aggregates appointment counts for the statistics view.
type Stats struct {
	Total     int                   `json:"total"`
	ByProfile map[model.Profile]int `json:"by_profile"`
	ByStatus  map[model.Status]int  `json:"by_status"`
	ByKind    map[model.Kind]int    `json:"by_kind"`
	ByMonth   []MonthCount          `json:"by_month"`
}

// Stats computes appointment totals grouped by profile, status, kind, and month.
func (s *AppointmentStore) Stats() (*Stats, error) {
	st := &Stats{
		ByProfile: make(map[model.Profile]int),
		ByStatus:  make(map[model.Status]int),
		ByKind:    make(map[model.Kind]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM appointments").Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	if err := s.countBy("profile", func(key string, n int) {
		st.ByProfile[model.Profile(key)] = n
	}); err != nil {
		return nil, err
	}
	if err := s.countBy("status", func(key string, n int) {
		st.ByStatus[model.Status(key)] = n
	}); err != nil {
		return nil, err
	}
	if err := s.countBy("kind", func(key string, n int) {
		st.ByKind[model.Kind(key)] = n
	}); err != nil {
		return nil, err
	}

	// Timestamps are stored in a YYYY-MM-DD-prefixed form, so the first seven
	// characters are the calendar month.
	rows, err := s.db.Query(
		`SELECT substr(scheduled_at, 1, 7) AS month, COUNT(*)
		 FROM appointments GROUP BY month ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("query month counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan month count: %w", err)
		}
		st.ByMonth = append(st.ByMonth, mc)
	}
	return st, rows.Err()
}

func (s *AppointmentStore) countBy(column string, add func(key string, n int)) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM appointments GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("query %s counts: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		add(key, n)
	}
	return rows.Err()
}

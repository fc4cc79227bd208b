package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/tracing"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Outcome tells what UpsertEvent did.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
)

func (o Outcome) String() string {
	if o == Updated {
		return "updated"
	}
	return "inserted"
}

// Store reads and writes events.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// VenueRow is a stored venue.
type VenueRow struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	CommonName string        `json:"commonName"`
	Region     venue.Region  `json:"region"`
	Location   *venue.LatLng `json:"latlng,omitempty"`
}

// EventRow is a stored event joined with its venue.
type EventRow struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	Date      event.Day `json:"date"`
	Img       string    `json:"img"`
	URL       string    `json:"url"`
	Venue     VenueRow  `json:"venue"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Query narrows ListEvents. Zero fields match everything.
type Query struct {
	Venue  string
	Region venue.Region
	// From and To bound the stored date inclusively. Year-less days are
	// kept regardless and filtered by the caller once resolved.
	From event.Day
	To   event.Day
}

// venueFor picks the row an event belongs to. Events reported by an
// aggregator are filed under the real venue, not the aggregator.
func venueFor(ev event.Event) VenueRow {
	row := VenueRow{
		Name:       ev.Source.Name,
		CommonName: ev.Source.CommonName,
		Region:     ev.Source.Region,
		Location:   ev.Source.Location,
	}
	if ev.Venue != "" {
		row.Name = ev.Source.CommonName
		row.Location = nil
	}
	if row.CommonName == "" {
		row.CommonName = row.Name
	}
	if row.Region == "" {
		row.Region = venue.Other
	}
	return row
}

// UpsertEvent stores ev, updating the row with the same venue, date and
// title if there is one.
func (s *Store) UpsertEvent(ctx context.Context, ev event.Event) (Outcome, error) {
	ctx, span := tracing.Start(ctx, "storage.UpsertEvent", tracing.AttrRule.String(ev.Source.Name))
	defer span.End()

	if ev.Source.Name == "" {
		return 0, errors.New("upsert event: missing source venue")
	}
	if !ev.Date.Valid() {
		return 0, fmt.Errorf("upsert event: invalid date %q", ev.Date)
	}
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		return 0, errors.New("upsert event: empty title")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("upsert event: begin: %w", err)
	}
	defer tx.Rollback()

	venueID, err := s.venueID(ctx, tx, venueFor(ev))
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("upsert event: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	outcome := Updated

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE venue_id = ? AND date = ? AND title = ?`,
		venueID, ev.Date, title,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		outcome = Inserted
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (title, details, date, venue_id, img, url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			title, ev.Details, ev.Date, venueID, ev.Img, ev.URL, now, now,
		)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE events SET details = ?, img = ?, url = ?, updated_at = ? WHERE id = ?`,
			ev.Details, ev.Img, ev.URL, now, id,
		)
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("upsert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("upsert event: commit: %w", err)
	}
	return outcome, nil
}

func (s *Store) venueID(ctx context.Context, tx *sql.Tx, v VenueRow) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM venues WHERE name = ?`, v.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("looking up venue %s: %w", v.Name, err)
	}

	var location any
	if v.Location != nil {
		location = v.Location.String()
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO venues (name, common_name, region, location) VALUES (?, ?, ?, ?) RETURNING id`,
		v.Name, v.CommonName, string(v.Region), location,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating venue %s: %w", v.Name, err)
	}
	return id, nil
}

// ListVenues returns every stored venue by name.
func (s *Store) ListVenues(ctx context.Context) ([]VenueRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, common_name, region, location FROM venues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	out := []VenueRow{}
	for rows.Next() {
		var (
			v        VenueRow
			region   string
			location sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.CommonName, &region, &location); err != nil {
			return nil, fmt.Errorf("list venues: %w", err)
		}
		v.Region = venue.Region(region)
		if v.Location, err = parseLocation(location); err != nil {
			return nil, fmt.Errorf("list venues: %s: %w", v.Name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListEvents returns the events matching q ordered by date, venue and title.
func (s *Store) ListEvents(ctx context.Context, q Query) ([]EventRow, error) {
	var (
		where []string
		args  []any
	)
	if q.Venue != "" {
		where = append(where, "(v.name = ? OR v.common_name = ?)")
		args = append(args, q.Venue, q.Venue)
	}
	if q.Region != "" {
		where = append(where, "v.region = ?")
		args = append(args, string(q.Region))
	}
	// Year-less days are stored as --MM-DD and sort before any full date.
	if !q.From.IsZero() {
		where = append(where, "(e.date LIKE '--%' OR e.date >= ?)")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		where = append(where, "(e.date LIKE '--%' OR e.date <= ?)")
		args = append(args, q.To)
	}

	query := `SELECT e.id, e.title, e.details, e.date, e.img, e.url, e.created_at, e.updated_at,
		v.id, v.name, v.common_name, v.region, v.location
		FROM events e JOIN venues v ON v.id = e.venue_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.date, v.name, e.title"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []EventRow{}
	for rows.Next() {
		var (
			e                EventRow
			created, updated string
			region           string
			location         sql.NullString
		)
		err := rows.Scan(
			&e.ID, &e.Title, &e.Details, &e.Date, &e.Img, &e.URL, &created, &updated,
			&e.Venue.ID, &e.Venue.Name, &e.Venue.CommonName, &region, &location,
		)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		e.Venue.Region = venue.Region(region)
		if e.Venue.Location, err = parseLocation(location); err != nil {
			return nil, fmt.Errorf("list events: %s: %w", e.Venue.Name, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseLocation(s sql.NullString) (*venue.LatLng, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	return venue.ParseLatLng(s.String)
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenda_scrooper/models"
)

// SaveError is returned when the store could not persist a record.
type SaveError struct {
	FullLink string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.FullLink, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// EventStore is the shared event store. A record is identified by its
// full_link; saving a known link is reported as a duplicate and changes
// nothing.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(ctx context.Context, connString string) (*EventStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &EventStore{pool: pool}, nil
}

func (s *EventStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the events table when it does not exist yet.
func (s *EventStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			start_year INTEGER NOT NULL,
			last_year INTEGER NOT NULL,
			start_month TEXT NOT NULL,
			last_month TEXT NOT NULL,
			start_day TEXT NOT NULL,
			last_day TEXT NOT NULL,
			time TEXT,
			end_time TEXT,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			coordinates JSONB,
			postal_code TEXT NOT NULL DEFAULT '',
			map_image_url TEXT NOT NULL DEFAULT '',
			img_url TEXT NOT NULL DEFAULT '',
			full_link TEXT NOT NULL,
			link TEXT,
			island TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_events_full_link ON events(full_link);
		CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_year, start_month, start_day);
	`)
	return err
}

// SaveScrapedEvent inserts e unless an event with the same full link exists.
func (s *EventStore) SaveScrapedEvent(ctx context.Context, e *models.Event) (models.SaveStatus, error) {
	var coords []byte
	if e.Coordinates != nil {
		var err error
		coords, err = json.Marshal(e.Coordinates)
		if err != nil {
			return models.SaveStatusError, &SaveError{FullLink: e.FullLink, Err: err}
		}
	}

	query := `
		INSERT INTO events (
			id, title, category, start_year, last_year, start_month, last_month,
			start_day, last_day, time, end_time, description, location, coordinates,
			postal_code, map_image_url, img_url, full_link, link, island, user_id, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (full_link) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		uuid.New(), e.Title, string(e.Category), e.StartYear, e.LastYear, e.StartMonth, e.LastMonth,
		e.StartDay, e.LastDay, e.Time, e.EndTime, e.Description, e.Location, coords,
		e.PostalCode, e.MapImageURL, e.ImgURL, e.FullLink, nullIfEmpty(e.ExternalURL), e.Island, e.UserID, e.Source,
	)
	if err != nil {
		return models.SaveStatusError, &SaveError{FullLink: e.FullLink, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return models.SaveStatusDuplicated, nil
	}
	return models.SaveStatusSaved, nil
}

// EventByLink loads a stored event, or nil when the link is unknown.
func (s *EventStore) EventByLink(ctx context.Context, fullLink string) (*models.Event, error) {
	var (
		e      models.Event
		cat    string
		coords []byte
		link   *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT title, category, start_year, last_year, start_month, last_month, start_day, last_day,
			time, end_time, description, location, coordinates, postal_code, map_image_url,
			img_url, full_link, link, island, user_id, source
		FROM events WHERE full_link = $1`, fullLink).Scan(
		&e.Title, &cat, &e.StartYear, &e.LastYear, &e.StartMonth, &e.LastMonth, &e.StartDay, &e.LastDay,
		&e.Time, &e.EndTime, &e.Description, &e.Location, &coords, &e.PostalCode, &e.MapImageURL,
		&e.ImgURL, &e.FullLink, &link, &e.Island, &e.UserID, &e.Source,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Category = models.CategoryID(cat)
	if link != nil {
		e.ExternalURL = *link
	}
	if len(coords) > 0 {
		e.Coordinates = &models.GeoPoint{}
		if err := json.Unmarshal(coords, e.Coordinates); err != nil {
			return nil, fmt.Errorf("decode coordinates: %w", err)
		}
	}
	return &e, nil
}

// CountBySource returns the number of stored events per source id.
func (s *EventStore) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM events GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

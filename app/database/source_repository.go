package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sourceColumns = `id, name, url, title, link, last_fetched_at, next_fetch_at, created_at, updated_at`

var _ SourceRepository = (*SourceStore)(nil)

// SourceStore keeps per-source import bookkeeping
type SourceStore struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

// UpsertSource registers a source or refreshes its URL
func (r *SourceStore) UpsertSource(name, url string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO sources (name, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`, name, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateSourceMetadata records a successful fetch and schedules the next one
func (r *SourceStore) UpdateSourceMetadata(name, title, link string, nextFetch time.Time) error {
	now := time.Now().UTC()

	res, err := r.db.Exec(`
		UPDATE sources
		SET title = ?, link = ?, last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, link, now, nextFetch.UTC(), now, name)
	if err != nil {
		return fmt.Errorf("failed to update source metadata: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated source: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source '%s' is not registered", name)
	}

	return nil
}

func (r *SourceStore) GetSource(name string) (*Source, error) {
	source, err := scanSource(r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return source, nil
}

func (r *SourceStore) GetSources() ([]Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceStore) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func scanSource(s rowScanner) (*Source, error) {
	var source Source
	var lastFetchedAt, nextFetchAt sql.NullTime

	err := s.Scan(
		&source.ID, &source.Name, &source.URL, &source.Title, &source.Link,
		&lastFetchedAt, &nextFetchAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastFetchedAt.Valid {
		t := lastFetchedAt.Time
		source.LastFetchedAt = &t
	}
	if nextFetchAt.Valid {
		t := nextFetchAt.Time
		source.NextFetchAt = &t
	}

	return &source, nil
}

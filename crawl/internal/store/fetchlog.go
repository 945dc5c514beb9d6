package store

import (
	"context"
	"fmt"
)

// InsertFetchLog appends one fetch attempt to the trail.
func (s *Store) InsertFetchLog(ctx context.Context, e *FetchLogEntry) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fetch_log (site_id, url, kind, status, error, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SiteID, e.URL, e.Kind, e.Status, e.Error, e.DurationMs, e.FetchedAt)
	return err
}

// FetchHistory returns the most recent fetch attempts for a site.
func (s *Store) FetchHistory(ctx context.Context, siteID string, limit int) ([]*FetchLogEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, site_id, url, kind, status, error, duration_ms, fetched_at
		FROM fetch_log WHERE site_id = ?
		ORDER BY fetched_at DESC, id DESC LIMIT ?`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		if err := rows.Scan(&e.ID, &e.SiteID, &e.URL, &e.Kind, &e.Status,
			&e.Error, &e.DurationMs, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

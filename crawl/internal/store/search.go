package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wisecart/wisecrawl/dbopen"
)

// GetSearch retrieves the search row for (query, identity), or nil.
func (s *Store) GetSearch(ctx context.Context, query, identity string) (*Search, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, query, identity, issued_at FROM searches
		WHERE query = ? AND identity = ?`, query, identity)

	var sr Search
	err := row.Scan(&sr.ID, &sr.Query, &sr.Identity, &sr.IssuedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan search: %w", err)
	}
	return &sr, nil
}

// UpsertSearch creates the (query, identity) row or refreshes its issued_at,
// and returns the row ID.
func (s *Store) UpsertSearch(ctx context.Context, query, identity string, issuedAt int64) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO searches (query, identity, issued_at) VALUES (?, ?, ?)
		ON CONFLICT(query, identity) DO UPDATE SET issued_at = excluded.issued_at
		RETURNING id`, query, identity, issuedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert search: %w", err)
	}
	return id, nil
}

// ReplaceHits atomically swaps a search's hits for a new set, inserted in
// arrival order. Rowids are monotonically assigned, which is what makes the
// equal-price tie-break stable. Runs in one transaction with busy-retry so
// a concurrent reader never observes the half-replaced state.
func (s *Store) ReplaceHits(ctx context.Context, searchID int64, hits []*SearchHit) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_hits WHERE search_id = ?`, searchID); err != nil {
			return fmt.Errorf("delete hits: %w", err)
		}
		for _, h := range hits {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO search_hits (search_id, site_id, title, price, in_stock, rating, url)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				searchID, h.SiteID, h.Title, nullFloat(h.Price), nullBool(h.InStock), h.Rating, h.URL)
			if err != nil {
				return fmt.Errorf("insert hit: %w", err)
			}
		}
		return nil
	})
}

// HitsBySearch returns a search's hits ordered by ascending price, equal
// prices in arrival order.
func (s *Store) HitsBySearch(ctx context.Context, searchID int64) ([]*SearchHit, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, search_id, site_id, title, price, in_stock, rating, url
		FROM search_hits WHERE search_id = ?
		ORDER BY price ASC, id ASC`, searchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*SearchHit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// LatestHitByURL returns the most recently stored hit for a canonical URL,
// or nil. Used to synthesize a fallback product when a cold detail fetch
// fails.
func (s *Store) LatestHitByURL(ctx context.Context, url string) (*SearchHit, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, search_id, site_id, title, price, in_stock, rating, url
		FROM search_hits WHERE url = ? ORDER BY id DESC LIMIT 1`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanHit(rows)
}

// Trending returns the most frequently issued queries since the cutoff,
// with the minimum hit price seen for each.
func (s *Store) Trending(ctx context.Context, since time.Time, limit int) ([]TrendingSearch, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT sr.query, COUNT(h.id), MIN(h.price)
		FROM searches sr JOIN search_hits h ON h.search_id = sr.id
		WHERE sr.issued_at >= ?
		GROUP BY sr.query
		ORDER BY COUNT(h.id) DESC, sr.query ASC
		LIMIT ?`, since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendingSearch
	for rows.Next() {
		var t TrendingSearch
		var minPrice sql.NullFloat64
		if err := rows.Scan(&t.Query, &t.Hits, &minPrice); err != nil {
			return nil, fmt.Errorf("scan trending: %w", err)
		}
		if minPrice.Valid {
			t.MinPrice = &minPrice.Float64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanHit(rows *sql.Rows) (*SearchHit, error) {
	var h SearchHit
	var price sql.NullFloat64
	var inStock sql.NullInt64
	err := rows.Scan(&h.ID, &h.SearchID, &h.SiteID, &h.Title, &price, &inStock, &h.Rating, &h.URL)
	if err != nil {
		return nil, fmt.Errorf("scan hit: %w", err)
	}
	if price.Valid {
		h.Price = &price.Float64
	}
	if inStock.Valid {
		b := inStock.Int64 != 0
		h.InStock = &b
	}
	return &h, nil
}

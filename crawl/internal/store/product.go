package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetProductByURL retrieves a product by canonical URL, or nil.
func (s *Store) GetProductByURL(ctx context.Context, url string) (*Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT url, site_id, name, price, in_stock, rating, image_url,
		overview, description, last_fetched_at
		FROM products WHERE url = ?`, url)

	var p Product
	var inStock sql.NullInt64
	var price, rating sql.NullFloat64
	err := row.Scan(&p.URL, &p.SiteID, &p.Name, &price, &inStock, &rating,
		&p.ImageURL, &p.Overview, &p.Description, &p.LastFetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if price.Valid {
		p.Price = &price.Float64
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	if inStock.Valid {
		b := inStock.Int64 != 0
		p.InStock = &b
	}
	return &p, nil
}

// UpsertProduct writes a product record, overwriting any existing row with
// the same canonical URL. The whole refresh-then-overwrite step is this one
// statement, so concurrent refreshes of the same URL cannot interleave
// destructively and the canonical-URL uniqueness invariant holds.
func (s *Store) UpsertProduct(ctx context.Context, p *Product) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO products (url, site_id, name, price, in_stock, rating,
		image_url, overview, description, last_fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
		site_id         = excluded.site_id,
		name            = excluded.name,
		price           = excluded.price,
		in_stock        = excluded.in_stock,
		rating          = excluded.rating,
		image_url       = excluded.image_url,
		overview        = excluded.overview,
		description     = excluded.description,
		last_fetched_at = excluded.last_fetched_at`,
		p.URL, p.SiteID, p.Name, nullFloat(p.Price), nullBool(p.InStock),
		nullFloat(p.Rating), p.ImageURL, p.Overview, p.Description, p.LastFetchedAt)
	return err
}

// CountProducts returns the number of product rows.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

package store

// Product is the long-lived record for one product page, keyed by its
// canonical (percent-encoded, absolute) URL. It is shared across searches
// and direct detail views.
type Product struct {
	URL           string   `json:"url"`
	SiteID        string   `json:"site_id"`
	Name          string   `json:"name"`
	Price         *float64 `json:"price,omitempty"`
	InStock       *bool    `json:"in_stock,omitempty"` // nil = unknown
	Rating        *float64 `json:"rating,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Description   string   `json:"description,omitempty"`
	LastFetchedAt int64    `json:"last_fetched_at"` // unix ms
}

// Search is one distinct (query, identity) pair. Re-running the same query
// updates IssuedAt in place.
type Search struct {
	ID       int64  `json:"id"`
	Query    string `json:"query"`
	Identity string `json:"identity,omitempty"`
	IssuedAt int64  `json:"issued_at"` // unix ms
}

// SearchHit is one listing extracted for a search. Hits are ephemeral:
// re-running a stale search deletes and reinserts them.
type SearchHit struct {
	ID       int64    `json:"id"`
	SearchID int64    `json:"search_id"`
	SiteID   string   `json:"site_id"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price,omitempty"`
	InStock  *bool    `json:"in_stock,omitempty"`
	Rating   float64  `json:"rating"`
	URL      string   `json:"url"`
}

// FetchLogEntry records one fetch attempt with enough context to reproduce.
type FetchLogEntry struct {
	ID         int64  `json:"id"`
	SiteID     string `json:"site_id"`
	URL        string `json:"url"`
	Kind       string `json:"kind"`   // "search" or "detail"
	Status     string `json:"status"` // "ok" or "error"
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	FetchedAt  int64  `json:"fetched_at"` // unix ms
}

// TrendingSearch is an aggregate row for the most-run recent queries.
type TrendingSearch struct {
	Query    string   `json:"query"`
	Hits     int      `json:"hits"`
	MinPrice *float64 `json:"min_price,omitempty"`
}

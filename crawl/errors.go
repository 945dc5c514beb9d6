package crawl

import "errors"

// ErrUnknownSite is returned when a lookup names a site with no registered
// adapter, or a detail lookup names a search-only site.
var ErrUnknownSite = errors.New("crawl: unknown site")

// ErrNotFound is returned when a detail lookup has neither a cached record,
// a successful fetch, nor a synthesizable fallback.
var ErrNotFound = errors.New("crawl: product not found")

// ErrInvalidInput is returned for empty or malformed caller input.
var ErrInvalidInput = errors.New("crawl: invalid input")

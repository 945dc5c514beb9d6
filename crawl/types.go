// Package crawl orchestrates multi-site product and price crawling.
//
// Given a search term it fans out to every registered storefront adapter,
// merges and orders the hits, and persists them under a freshness policy.
// Given a product URL it serves the cached record while fresh, refreshes it
// when stale, and falls back to the stale copy when the refresh fails.
package crawl

import (
	"github.com/wisecart/wisecrawl/crawl/internal/adapters"
	"github.com/wisecart/wisecrawl/crawl/internal/store"
)

// Re-export store types for the public API.
type (
	Product        = store.Product
	SearchHit      = store.SearchHit
	FetchLogEntry  = store.FetchLogEntry
	TrendingSearch = store.TrendingSearch
	Site           = adapters.Site
)

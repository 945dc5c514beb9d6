package crawl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/wisecart/wisecrawl/crawl/internal/adapters"
	"github.com/wisecart/wisecrawl/crawl/internal/fetch"
	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
	"github.com/wisecart/wisecrawl/crawl/internal/store"
)

// documentFetcher abstracts the fetch layer for testability.
type documentFetcher interface {
	Detail(ctx context.Context, siteID, url string) (*fetch.Document, error)
	Search(ctx context.Context, targets []fetch.Target) map[string]*fetch.Document
}

// Service is the crawl orchestrator and staleness-aware store gateway.
type Service struct {
	store    *store.Store
	fetcher  documentFetcher
	registry *adapters.Registry
	logger   *slog.Logger
	config   *Config
	now      func() time.Time
}

// New creates a Service on an open database, applying the schema.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	svc := &Service{
		store:    store.NewStore(db),
		registry: adapters.NewRegistry(),
		logger:   logger,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.fetcher == nil {
		svc.fetcher = fetch.New(cfg.Fetch, logger)
	}
	return svc, nil
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithFetcher overrides the HTTP fetch layer. Use in tests.
func WithFetcher(f documentFetcher) ServiceOption {
	return func(svc *Service) { svc.fetcher = f }
}

// WithClock overrides the time source. Use in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// Sites returns the static descriptors of every registered storefront.
func (svc *Service) Sites() []Site {
	all := svc.registry.All()
	sites := make([]Site, len(all))
	for i, a := range all {
		sites[i] = a.Site()
	}
	return sites
}

// FetchHistory returns the recent fetch attempts for a site.
func (svc *Service) FetchHistory(ctx context.Context, siteID string, limit int) ([]*FetchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return svc.store.FetchHistory(ctx, siteID, limit)
}

// TrendingSearches returns the most frequently issued queries inside the
// window with their minimum hit price.
func (svc *Service) TrendingSearches(ctx context.Context, window time.Duration, limit int) ([]TrendingSearch, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	if limit <= 0 {
		limit = 8
	}
	return svc.store.Trending(ctx, svc.now().Add(-window), limit)
}

// --- Detail lookup ---

// GetOrRefreshDetail returns the product record for a URL on one site.
//
// The site name is matched case-insensitively against the registered
// display names. The URL is normalized to its canonical percent-encoded
// form before any lookup or write. A record younger than the product TTL is
// returned without touching the network; a stale record triggers exactly
// one refresh fetch, and if that fails the stale record is served
// unchanged. A cold miss triggers one fetch; if it fails, a minimal record
// is synthesized from the newest stored search hit for the same URL so
// future lookups hit the cache.
func (svc *Service) GetOrRefreshDetail(ctx context.Context, siteName, productURL string) (*Product, error) {
	ad := svc.registry.LookupByName(siteName)
	if ad == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, siteName)
	}
	dp, ok := ad.(adapters.DetailParser)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no product-detail pages", ErrUnknownSite, siteName)
	}
	site := ad.Site()

	canonical := normalize.EncodeURL(strings.TrimSpace(productURL))
	if err := validateProductURL(canonical, site); err != nil {
		return nil, err
	}

	existing, err := svc.store.GetProductByURL(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}

	now := svc.now()
	if existing != nil && now.Sub(time.UnixMilli(existing.LastFetchedAt)) < svc.config.Cache.ProductTTL {
		svc.logger.Debug("detail: cache hit", "site", site.ID, "url", canonical)
		return existing, nil
	}

	fresh, err := svc.refreshDetail(ctx, site, dp, canonical)
	if err == nil {
		return fresh, nil
	}

	if existing != nil {
		// Stale-data-served: an explicit fallback outcome, not a failure.
		svc.logger.Warn("detail: refresh failed, serving stale record",
			"site", site.ID, "url", canonical, "error", err)
		return existing, nil
	}

	// Cold miss and the fetch failed. Synthesize from a prior search hit if
	// one exists so the next lookup is a cache hit.
	hit, hitErr := svc.store.LatestHitByURL(ctx, canonical)
	if hitErr == nil && hit != nil {
		p := &Product{
			URL:           canonical,
			SiteID:        site.ID,
			Name:          hit.Title,
			Price:         hit.Price,
			InStock:       hit.InStock,
			Rating:        &hit.Rating,
			LastFetchedAt: now.UnixMilli(),
		}
		if upErr := svc.store.UpsertProduct(ctx, p); upErr != nil {
			return nil, fmt.Errorf("persist fallback product: %w", upErr)
		}
		svc.logger.Warn("detail: fetch failed, synthesized record from search hit",
			"site", site.ID, "url", canonical, "error", err)
		return p, nil
	}

	svc.logger.Error("detail: fetch failed with no cached record or fallback",
		"site", site.ID, "url", canonical, "error", err)
	return nil, fmt.Errorf("%w: %s (%v)", ErrNotFound, canonical, err)
}

// refreshDetail performs the single fetch+parse+upsert step of a detail
// refresh. The overwrite is one atomic statement keyed on the canonical
// URL, so concurrent refreshes are redundant work, not a hazard.
func (svc *Service) refreshDetail(ctx context.Context, site Site, dp adapters.DetailParser, canonical string) (*Product, error) {
	start := svc.now()
	doc, err := svc.fetcher.Detail(ctx, site.ID, canonical)
	svc.logFetch(ctx, site.ID, canonical, "detail", start, err)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}

	raw := dp.ParseDetail(doc.Doc, canonical)
	p := &Product{
		URL:           canonical,
		SiteID:        site.ID,
		Name:          raw.Name,
		Price:         raw.Price,
		InStock:       raw.InStock,
		Rating:        &raw.Rating,
		ImageURL:      raw.ImageURL,
		Overview:      raw.Overview,
		Description:   raw.Description,
		LastFetchedAt: svc.now().UnixMilli(),
	}
	if err := svc.store.UpsertProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}
	svc.logger.Info("detail: refreshed", "site", site.ID, "url", canonical, "name", p.Name)
	return p, nil
}

// validateProductURL rejects URLs that cannot belong to the named site.
func validateProductURL(canonical string, site Site) error {
	u, err := url.Parse(canonical)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	domain := strings.TrimPrefix(site.Domain, "www.")
	if host != site.Domain && host != domain && !strings.HasSuffix(host, "."+domain) {
		return fmt.Errorf("%w: host %q does not belong to %s", ErrInvalidInput, host, site.Name)
	}
	return nil
}

// --- Search ---

// RunSearch returns the hits for a query, ordered by ascending price with
// equal prices in arrival order.
//
// A search issued within the search TTL that already has hits is answered
// from storage with no network activity. Otherwise the previous hits are
// deleted, every storefront is queried concurrently, and whatever arrived
// is persisted and returned.
func (svc *Service) RunSearch(ctx context.Context, queryText, identity string) ([]*SearchHit, error) {
	query := strings.TrimSpace(queryText)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}

	existing, err := svc.store.GetSearch(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("lookup search: %w", err)
	}
	now := svc.now()
	if existing != nil && now.Sub(time.UnixMilli(existing.IssuedAt)) < svc.config.Cache.SearchTTL {
		hits, err := svc.store.HitsBySearch(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("load hits: %w", err)
		}
		if len(hits) > 0 {
			svc.logger.Info("search: served from cache", "query", query, "hits", len(hits))
			return hits, nil
		}
	}

	searchID, err := svc.store.UpsertSearch(ctx, query, identity, now.UnixMilli())
	if err != nil {
		return nil, err
	}

	raw := svc.searchAll(ctx, query)

	hits := make([]*store.SearchHit, 0, len(raw))
	for _, r := range raw {
		hits = append(hits, &store.SearchHit{
			SearchID: searchID,
			SiteID:   r.SiteID,
			Title:    r.Title,
			Price:    r.Price,
			InStock:  r.InStock,
			Rating:   r.Rating,
			URL:      normalize.EncodeURL(r.URL),
		})
	}
	if err := svc.store.ReplaceHits(ctx, searchID, hits); err != nil {
		return nil, fmt.Errorf("persist hits: %w", err)
	}
	svc.logger.Info("search: crawled", "query", query, "hits", len(hits))
	return svc.store.HitsBySearch(ctx, searchID)
}

// searchAll fans the query out to every registered adapter via the fetch
// layer and flattens the parsed hits. No cross-site deduplication: the same
// product on two sites is two legitimate records.
func (svc *Service) searchAll(ctx context.Context, query string) []adapters.RawHit {
	tokens := adapters.Tokens(query)
	all := svc.registry.All()

	targets := make([]fetch.Target, len(all))
	for i, a := range all {
		targets[i] = fetch.Target{SiteID: a.Site().ID, URL: a.SearchURL(tokens)}
	}

	start := svc.now()
	docs := svc.fetcher.Search(ctx, targets)

	var out []adapters.RawHit
	for i, a := range all {
		siteID := a.Site().ID
		doc, ok := docs[siteID]
		if !ok {
			svc.logFetchErr(ctx, siteID, targets[i].URL, "search", start, "no document within deadline")
			continue
		}
		svc.logFetch(ctx, siteID, targets[i].URL, "search", start, nil)
		hits := a.ParseSearch(doc.Doc, tokens)
		svc.logger.Debug("search: site parsed", "site", siteID, "query", query, "hits", len(hits))
		out = append(out, hits...)
	}
	return out
}

// --- fetch trail ---

func (svc *Service) logFetch(ctx context.Context, siteID, url, kind string, start time.Time, err error) {
	status, msg := "ok", ""
	if err != nil {
		status, msg = "error", err.Error()
	}
	svc.insertFetchLog(ctx, siteID, url, kind, status, msg, start)
}

func (svc *Service) logFetchErr(ctx context.Context, siteID, url, kind string, start time.Time, msg string) {
	svc.insertFetchLog(ctx, siteID, url, kind, "error", msg, start)
}

func (svc *Service) insertFetchLog(ctx context.Context, siteID, url, kind, status, msg string, start time.Time) {
	e := &store.FetchLogEntry{
		SiteID:     siteID,
		URL:        url,
		Kind:       kind,
		Status:     status,
		Error:      msg,
		DurationMs: svc.now().Sub(start).Milliseconds(),
		FetchedAt:  svc.now().UnixMilli(),
	}
	if err := svc.store.InsertFetchLog(ctx, e); err != nil {
		svc.logger.Warn("fetch log write failed", "site", siteID, "error", err)
	}
}

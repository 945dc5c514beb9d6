// Package fetch issues the HTTP requests behind every crawl.
//
// A detail fetch is one bounded request. A search fetch fans out to every
// storefront concurrently under a single shared deadline: slow or failing
// sites contribute nothing, siblings are unaffected, and the call returns
// within the deadline regardless. No retries happen here; the store
// gateway owns fallback behavior.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Browser-like UA; several of the storefronts reject default Go clients.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config configures the fetcher.
type Config struct {
	// Timeout bounds one detail fetch and one whole search fan-out. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
	// MaxBytes caps a response body. Default: 10MB.
	MaxBytes int64 `yaml:"max_bytes"`
	// UserAgent sent with every request.
	UserAgent string `yaml:"user_agent"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Target names one site's URL in a search fan-out.
type Target struct {
	SiteID string
	URL    string
}

// Document is a fetched, parsed page.
type Document struct {
	SiteID string
	URL    string // final URL after redirects
	Doc    *goquery.Document
}

// Fetcher performs bounded HTTP fetches.
type Fetcher struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		config: cfg,
		logger: logger,
	}
}

// Detail fetches a single product page under the configured deadline.
func (f *Fetcher) Detail(ctx context.Context, siteID, url string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()
	return f.get(ctx, siteID, url)
}

// Search fetches every target concurrently and returns the documents that
// arrived before the shared deadline, keyed by site ID. A failed site is
// logged and absent from the result; it never fails the call.
func (f *Fetcher) Search(ctx context.Context, targets []Target) map[string]*Document {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	type result struct {
		doc *Document
		err error
		t   Target
	}
	ch := make(chan result, len(targets))
	for _, t := range targets {
		go func(t Target) {
			doc, err := f.get(ctx, t.SiteID, t.URL)
			ch <- result{doc: doc, err: err, t: t}
		}(t)
	}

	docs := make(map[string]*Document, len(targets))
	for range targets {
		select {
		case r := <-ch:
			if r.err != nil {
				f.logger.Warn("fetch: site failed during search fan-out",
					"site", r.t.SiteID, "url", r.t.URL, "error", r.err)
				continue
			}
			docs[r.doc.SiteID] = r.doc
		case <-ctx.Done():
			// Deadline hit: abandon whatever is still in flight. The
			// goroutines drain into the buffered channel and exit.
			f.logger.Warn("fetch: search fan-out deadline exceeded",
				"collected", len(docs), "targets", len(targets))
			return docs
		}
	}
	return docs
}

func (f *Fetcher) get(ctx context.Context, siteID, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	final := resp.Request.URL
	doc.Url = final

	return &Document{SiteID: siteID, URL: final.String(), Doc: doc}, nil
}

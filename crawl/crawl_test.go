package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	_ "modernc.org/sqlite"

	"github.com/wisecart/wisecrawl/crawl/internal/fetch"
	"github.com/wisecart/wisecrawl/dbopen"
)

// stubFetcher satisfies the fetch layer with canned documents and counts
// calls, so tests can assert exactly when the network would be touched.
type stubFetcher struct {
	detailDoc   func(siteID, url string) (*fetch.Document, error)
	searchDocs  map[string]string // site ID -> HTML
	detailCalls int
	searchCalls int
}

func (s *stubFetcher) Detail(_ context.Context, siteID, url string) (*fetch.Document, error) {
	s.detailCalls++
	if s.detailDoc == nil {
		return nil, errors.New("stub: no detail document")
	}
	return s.detailDoc(siteID, url)
}

func (s *stubFetcher) Search(_ context.Context, targets []fetch.Target) map[string]*fetch.Document {
	s.searchCalls++
	docs := make(map[string]*fetch.Document)
	for _, t := range targets {
		html, ok := s.searchDocs[t.SiteID]
		if !ok {
			continue
		}
		docs[t.SiteID] = mustDocument(t.SiteID, t.URL, html)
	}
	return docs
}

func mustDocument(siteID, rawURL, html string) *fetch.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	// Mirror the real fetcher: the document knows its own URL so relative
	// hrefs absolutize.
	doc.Url, err = url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return &fetch.Document{SiteID: siteID, URL: rawURL, Doc: doc}
}

func setupService(t *testing.T, fetcher *stubFetcher) (*Service, *time.Time) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	now := time.UnixMilli(1_700_000_000_000)
	svc, err := New(db, nil, nil, WithFetcher(fetcher), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, &now
}

const startechDetailHTML = `<html><body>
<div class="product-short-info">
  <h1 class="product-name">Asus Zenbook 14 OLED</h1>
  <table><tr>
    <td class="product-price"><ins>135,000৳</ins></td>
    <td class="product-status">In Stock</td>
  </tr></table>
</div>
</body></html>`

func startechSearchHTML(titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, title := range titles {
		fmt.Fprintf(&b, `<div class="p-item">
		  <h4 class="p-item-name"><a href="/p/%d">%s</a></h4>
		  <div class="p-item-price"><span>%d,000৳</span></div>
		</div>`, i, title, 100+i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestGetOrRefreshDetail_UnknownSite(t *testing.T) {
	svc, _ := setupService(t, &stubFetcher{})

	_, err := svc.GetOrRefreshDetail(context.Background(), "nosuchsite", "https://x.example/p")
	if !errors.Is(err, ErrUnknownSite) {
		t.Fatalf("err = %v, want ErrUnknownSite", err)
	}
}

func TestGetOrRefreshDetail_SearchOnlySiteRejected(t *testing.T) {
	// WHAT: Ryans resolves as a site but has no detail pages, so detail
	// dispatch fails the same way an unknown site does.
	svc, _ := setupService(t, &stubFetcher{})

	_, err := svc.GetOrRefreshDetail(context.Background(), "Ryans", "https://www.ryanscomputers.com/p")
	if !errors.Is(err, ErrUnknownSite) {
		t.Fatalf("err = %v, want ErrUnknownSite", err)
	}
}

func TestGetOrRefreshDetail_ForeignHostRejected(t *testing.T) {
	// WHAT: a URL whose host does not belong to the named site is invalid
	// input, not a fetch attempt.
	fetcher := &stubFetcher{}
	svc, _ := setupService(t, fetcher)

	_, err := svc.GetOrRefreshDetail(context.Background(), "Startech", "https://evil.example/p")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if fetcher.detailCalls != 0 {
		t.Error("no fetch should happen for invalid input")
	}
}

func TestGetOrRefreshDetail_RefreshParsesAndPersists(t *testing.T) {
	// WHAT: a cold miss fetches once, parses the page, and persists the
	// record under the canonical URL.
	fetcher := &stubFetcher{
		detailDoc: func(siteID, url string) (*fetch.Document, error) {
			return mustDocument(siteID, url, startechDetailHTML), nil
		},
	}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	p, err := svc.GetOrRefreshDetail(ctx, "Startech", "https://www.startech.com.bd/asus-zenbook-14")
	if err != nil {
		t.Fatalf("GetOrRefreshDetail: %v", err)
	}
	if fetcher.detailCalls != 1 {
		t.Fatalf("detail calls = %d, want 1", fetcher.detailCalls)
	}
	if p.Name != "Asus Zenbook 14 OLED" {
		t.Errorf("name = %q", p.Name)
	}
	if p.Price == nil || *p.Price != 135000 {
		t.Errorf("price = %v, want 135000", p.Price)
	}
	if p.InStock == nil || !*p.InStock {
		t.Error("status cell says In Stock")
	}
}

func TestGetOrRefreshDetail_FreshRecordServedWithoutFetch(t *testing.T) {
	// WHAT: a second lookup inside the product TTL touches no network.
	// WHY: the store gateway exists to absorb repeat traffic.
	fetcher := &stubFetcher{
		detailDoc: func(siteID, url string) (*fetch.Document, error) {
			return mustDocument(siteID, url, startechDetailHTML), nil
		},
	}
	svc, now := setupService(t, fetcher)
	ctx := context.Background()
	url := "https://www.startech.com.bd/asus-zenbook-14"

	if _, err := svc.GetOrRefreshDetail(ctx, "Startech", url); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(23 * time.Hour)
	if _, err := svc.GetOrRefreshDetail(ctx, "Startech", url); err != nil {
		t.Fatal(err)
	}
	if fetcher.detailCalls != 1 {
		t.Fatalf("detail calls = %d, want 1: second lookup is inside the TTL", fetcher.detailCalls)
	}
}

func TestGetOrRefreshDetail_StaleTriggersExactlyOneRefresh(t *testing.T) {
	fetcher := &stubFetcher{
		detailDoc: func(siteID, url string) (*fetch.Document, error) {
			return mustDocument(siteID, url, startechDetailHTML), nil
		},
	}
	svc, now := setupService(t, fetcher)
	ctx := context.Background()
	url := "https://www.startech.com.bd/asus-zenbook-14"

	if _, err := svc.GetOrRefreshDetail(ctx, "Startech", url); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(25 * time.Hour)
	if _, err := svc.GetOrRefreshDetail(ctx, "Startech", url); err != nil {
		t.Fatal(err)
	}
	if fetcher.detailCalls != 2 {
		t.Fatalf("detail calls = %d, want 2: past the TTL one refresh happens", fetcher.detailCalls)
	}
}

func TestGetOrRefreshDetail_StaleServedWhenRefreshFails(t *testing.T) {
	// WHAT: when the refresh fetch fails, the stale record comes back
	// unchanged instead of an error.
	// WHY: old data beats no data for a price lookup.
	fetchOK := true
	fetcher := &stubFetcher{
		detailDoc: func(siteID, url string) (*fetch.Document, error) {
			if !fetchOK {
				return nil, errors.New("connection refused")
			}
			return mustDocument(siteID, url, startechDetailHTML), nil
		},
	}
	svc, now := setupService(t, fetcher)
	ctx := context.Background()
	url := "https://www.startech.com.bd/asus-zenbook-14"

	first, err := svc.GetOrRefreshDetail(ctx, "Startech", url)
	if err != nil {
		t.Fatal(err)
	}

	*now = now.Add(25 * time.Hour)
	fetchOK = false
	second, err := svc.GetOrRefreshDetail(ctx, "Startech", url)
	if err != nil {
		t.Fatalf("stale record should be served, got error: %v", err)
	}
	if second.LastFetchedAt != first.LastFetchedAt {
		t.Error("served record should be the stale one, not a rewrite")
	}
}

func TestGetOrRefreshDetail_ColdMissFallsBackToSearchHit(t *testing.T) {
	// WHAT: with no cached record and a failing fetch, a prior search hit
	// for the same canonical URL seeds a minimal product record.
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			"startech": startechSearchHTML("Asus Zenbook 14 OLED"),
		},
	}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	hits, err := svc.RunSearch(ctx, "asus zenbook", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	p, err := svc.GetOrRefreshDetail(ctx, "Startech", hits[0].URL)
	if err != nil {
		t.Fatalf("fallback should synthesize a record, got: %v", err)
	}
	if p.Name != "Asus Zenbook 14 OLED" {
		t.Errorf("name = %q, want the hit's title", p.Name)
	}

	// The synthesized record is persisted: the next lookup is a cache hit.
	calls := fetcher.detailCalls
	if _, err := svc.GetOrRefreshDetail(ctx, "Startech", hits[0].URL); err != nil {
		t.Fatal(err)
	}
	if fetcher.detailCalls != calls {
		t.Error("synthesized record should satisfy the next lookup without fetching")
	}
}

func TestGetOrRefreshDetail_ColdMissNoFallbackIsNotFound(t *testing.T) {
	svc, _ := setupService(t, &stubFetcher{})

	_, err := svc.GetOrRefreshDetail(context.Background(), "Startech", "https://www.startech.com.bd/ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunSearch_EmptyQueryRejected(t *testing.T) {
	svc, _ := setupService(t, &stubFetcher{})

	_, err := svc.RunSearch(context.Background(), "   ", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRunSearch_AggregatesAndOrdersByPrice(t *testing.T) {
	// WHAT: hits from different sites interleave cheapest-first in the
	// result.
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			// 100,000 then 101,000
			"startech": startechSearchHTML("Asus Zenbook 14", "Asus Zenbook S 13"),
			// 99,500
			"ryans": `<div class="grid-product-item">
			  <a class="product-card-link" href="https://www.ryanscomputers.com/zenbook"></a>
			  <p class="card-text">Asus Zenbook 14 Laptop</p>
			  <p class="pr-text">99,500 Tk</p>
			</div>`,
		},
	}
	svc, _ := setupService(t, fetcher)

	hits, err := svc.RunSearch(context.Background(), "asus zenbook", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].SiteID != "ryans" {
		t.Errorf("cheapest hit should come from ryans, got %s", hits[0].SiteID)
	}
	if hits[1].Price == nil || hits[2].Price == nil || *hits[1].Price > *hits[2].Price {
		t.Error("hits must be in ascending price order")
	}
}

func TestRunSearch_ReusedWithinTTL(t *testing.T) {
	// WHAT: re-issuing a search inside the TTL serves stored hits with no
	// second fan-out; a different identity crawls independently.
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			"startech": startechSearchHTML("Asus Zenbook 14"),
		},
	}
	svc, now := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := svc.RunSearch(ctx, "asus zenbook", "alice"); err != nil {
		t.Fatal(err)
	}
	if fetcher.searchCalls != 1 {
		t.Fatalf("search calls = %d, want 1", fetcher.searchCalls)
	}

	*now = now.Add(23 * time.Hour)
	if _, err := svc.RunSearch(ctx, "asus zenbook", "alice"); err != nil {
		t.Fatal(err)
	}
	if fetcher.searchCalls != 1 {
		t.Fatalf("search calls = %d, want 1: second run is inside the TTL", fetcher.searchCalls)
	}

	if _, err := svc.RunSearch(ctx, "asus zenbook", "bob"); err != nil {
		t.Fatal(err)
	}
	if fetcher.searchCalls != 2 {
		t.Fatalf("search calls = %d, want 2: identity partitions searches", fetcher.searchCalls)
	}
}

func TestRunSearch_StaleSearchRecrawls(t *testing.T) {
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			"startech": startechSearchHTML("Asus Zenbook 14"),
		},
	}
	svc, now := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := svc.RunSearch(ctx, "asus zenbook", ""); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(25 * time.Hour)
	if _, err := svc.RunSearch(ctx, "asus zenbook", ""); err != nil {
		t.Fatal(err)
	}
	if fetcher.searchCalls != 2 {
		t.Fatalf("search calls = %d, want 2 after the TTL", fetcher.searchCalls)
	}
}

func TestRunSearch_RecordsFetchTrail(t *testing.T) {
	// WHAT: the fan-out leaves one fetch_log entry per site, errors
	// included for the sites that produced nothing.
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			"startech": startechSearchHTML("Asus Zenbook 14"),
		},
	}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := svc.RunSearch(ctx, "asus zenbook", ""); err != nil {
		t.Fatal(err)
	}

	ok, err := svc.FetchHistory(ctx, "startech", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ok) != 1 || ok[0].Status != "ok" {
		t.Fatalf("startech trail = %+v, want one ok entry", ok)
	}

	missed, err := svc.FetchHistory(ctx, "ryans", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(missed) != 1 || missed[0].Status != "error" {
		t.Fatalf("ryans trail = %+v, want one error entry", missed)
	}
}

func TestTrendingSearches(t *testing.T) {
	fetcher := &stubFetcher{
		searchDocs: map[string]string{
			"startech": startechSearchHTML("Asus Zenbook 14"),
		},
	}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := svc.RunSearch(ctx, "asus zenbook", ""); err != nil {
		t.Fatal(err)
	}

	out, err := svc.TrendingSearches(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Query != "asus zenbook" {
		t.Fatalf("trending = %+v, want the issued query", out)
	}
}

func TestSites(t *testing.T) {
	svc, _ := setupService(t, &stubFetcher{})
	sites := svc.Sites()
	if len(sites) != 7 {
		t.Fatalf("got %d sites, want 7", len(sites))
	}
	if sites[0].ID != "startech" {
		t.Errorf("first site = %q, want registration order", sites[0].ID)
	}
}

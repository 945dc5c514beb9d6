// Package adapters contains the per-storefront extraction logic.
//
// Each adapter converts one fetched document into raw records: listing hits
// in search mode, a single best-effort record in detail mode. Adapters are
// pure parsers: they never touch the network or storage. Missing selectors
// produce null/default fields, never errors; only the fetch layer reports
// transport failures.
//
// Sites are added by registering a new Adapter implementation, never by
// editing a dispatch chain.
package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// Site is the static descriptor of one storefront.
type Site struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// RawHit is one search-results entry before persistence.
type RawHit struct {
	SiteID  string
	Title   string
	Price   *float64
	InStock *bool
	Rating  float64
	URL     string
}

// RawDetail is a product-detail extraction before persistence.
// Fields the page did not yield stay nil/empty.
type RawDetail struct {
	SiteID      string
	Name        string
	Price       *float64
	InStock     *bool
	Rating      float64
	ImageURL    string
	Overview    string
	Description string
}

// searchCap bounds how many hits one site contributes per search.
const searchCap = 2

// Adapter extracts search hits from one storefront's result pages.
type Adapter interface {
	Site() Site
	// SearchURL builds the site's search-results URL for the query tokens.
	SearchURL(tokens []string) string
	// ParseSearch scans result entries in document order, keeps entries
	// whose title passes the adapter's token-match policy, and returns at
	// most two hits.
	ParseSearch(doc *goquery.Document, tokens []string) []RawHit
}

// DetailParser is implemented by adapters that can extract a product-detail
// page. Ryans has no reliable detail markup and omits it.
type DetailParser interface {
	// ParseDetail extracts a single best-effort record. pageURL is the
	// canonical URL of the fetched page, used to absolutize asset links.
	ParseDetail(doc *goquery.Document, pageURL string) RawDetail
}

// Registry maps site IDs to adapter implementations.
type Registry struct {
	order []Adapter
	byID  map[string]Adapter
}

// NewRegistry returns a registry with every known storefront registered.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Adapter)}
	for _, a := range []Adapter{
		&Startech{},
		&Ryans{},
		&TechLand{},
		&Potakait{},
		&UCC{},
		&SumashTech{},
		&RioInternational{},
	} {
		r.register(a)
	}
	return r
}

func (r *Registry) register(a Adapter) {
	r.order = append(r.order, a)
	r.byID[a.Site().ID] = a
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter { return r.order }

// Lookup returns the adapter for a site ID, or nil.
func (r *Registry) Lookup(siteID string) Adapter { return r.byID[siteID] }

// LookupByName matches a site's display name case-insensitively, or nil.
func (r *Registry) LookupByName(name string) Adapter {
	for _, a := range r.order {
		if strings.EqualFold(a.Site().Name, name) {
			return a
		}
	}
	return nil
}

// Tokens lowercases and whitespace-splits a query.
func Tokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchAll reports whether every token appears in the title.
func matchAll(title string, tokens []string) bool {
	t := strings.ToLower(title)
	for _, tok := range tokens {
		if !strings.Contains(t, tok) {
			return false
		}
	}
	return len(tokens) > 0
}

// matchAny reports whether at least one token appears in the title.
func matchAny(title string, tokens []string) bool {
	t := strings.ToLower(title)
	for _, tok := range tokens {
		if strings.Contains(t, tok) {
			return true
		}
	}
	return false
}

// matchMajority requires all tokens for short queries, and for longer ones
// either half the tokens (at least two) or the leading brand token plus one
// more. Sumash Tech search results are noisy enough to need the looser rule.
func matchMajority(title string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	t := strings.ToLower(title)
	matching := 0
	for _, tok := range tokens {
		if strings.Contains(t, tok) {
			matching++
		}
	}
	required := len(tokens)
	if len(tokens) > 2 {
		required = len(tokens) / 2
		if required < 2 {
			required = 2
		}
	}
	if matching >= required {
		return true
	}
	return strings.Contains(t, tokens[0]) && matching >= 2
}

// --- selector helpers ---

// firstText returns the trimmed text of the first selector that matches a
// non-empty node. Mirrors the fallback-chain style of the site markup:
// precise selector first, progressively looser ones after.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func docFirstText(doc *goquery.Document, selectors ...string) string {
	return firstText(doc.Selection, selectors...)
}

// firstAttr returns the named attribute of the first selector that yields a
// non-empty value.
func firstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := s.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ownTexts collects the direct text-node content of every node the selector
// matches (the ::text of each node).
func ownTexts(s *goquery.Selection, selector string) []string {
	var out []string
	s.Find(selector).Each(func(_ int, li *goquery.Selection) {
		for _, n := range li.Nodes {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == xhtml.TextNode {
					out = append(out, c.Data)
				}
			}
		}
	})
	return out
}

// deepTexts collects every text node under the matched subtree in document
// order (the `sel *::text` idiom).
func deepTexts(s *goquery.Selection, selector string) []string {
	var out []string
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			out = append(out, n.Data)
			return
		}
		if n.Type == xhtml.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	s.Find(selector).Each(func(_ int, m *goquery.Selection) {
		for _, n := range m.Nodes {
			walk(n)
		}
	})
	return out
}

func boolPtr(b bool) *bool { return &b }

// baseURL returns the document's own URL for resolving relative hrefs.
func baseURL(doc *goquery.Document) string {
	if doc.Url == nil {
		return ""
	}
	return doc.Url.String()
}

// searchPrice cleans a listing price. Search mode never yields a null
// price: an unparseable price becomes 0 so ordering stays total.
func searchPrice(raw string) *float64 {
	if p := normalize.CleanPrice(raw); p != nil {
		return p
	}
	zero := 0.0
	return &zero
}

// stockFromPrice is the default stock signal for sites whose listings carry
// no explicit availability marker: a positive price means purchasable.
func stockFromPrice(price *float64) *bool {
	return boolPtr(price != nil && *price > 0)
}

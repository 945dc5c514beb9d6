package adapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// Ryans extracts ryanscomputers.com search pages. It is search-only: the
// detail markup changes too often to scrape reliably, so it deliberately
// does not implement DetailParser.
//
// Token policy: ALL query tokens must appear in the listing title.
type Ryans struct{}

func (Ryans) Site() Site {
	return Site{ID: "ryans", Name: "Ryans", Domain: "www.ryanscomputers.com"}
}

func (Ryans) SearchURL(tokens []string) string {
	return "https://www.ryanscomputers.com/search?q=" + url.QueryEscape(strings.Join(tokens, " "))
}

func (r Ryans) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find("div.grid-product-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "p.card-text")
		if title == "" || !matchAll(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item, "p.pr-text"))
		hits = append(hits, RawHit{
			SiteID:  "ryans",
			Title:   title,
			Price:   price,
			InStock: stockFromPrice(price),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", "a.product-card-link"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

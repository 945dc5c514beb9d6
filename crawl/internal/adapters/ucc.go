package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// UCC extracts ucc.com.bd (OpenCart) pages.
//
// Token policy: none. The site's own search relevance is trusted and every
// listed entry up to the cap is taken. Listings carry no availability
// marker, so search-mode stock stays unknown; the detail page has an
// explicit in-stock badge.
type UCC struct{}

func (UCC) Site() Site {
	return Site{ID: "ucc", Name: "UCC", Domain: "www.ucc.com.bd"}
}

func (UCC) SearchURL(tokens []string) string {
	return "https://www.ucc.com.bd/index.php?route=product/search&search=" +
		strings.Join(tokens, "+") + "&description=true"
}

func (u UCC) ParseSearch(doc *goquery.Document, _ []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find("div.main-products.product-grid > div").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "div.caption div.name a")
		href := firstAttr(item, "href", "div.caption div.name a")
		if title == "" || href == "" {
			return true
		}
		hits = append(hits, RawHit{
			SiteID: "ucc",
			Title:  title,
			Price:  searchPrice(firstText(item, "div.caption div.price span", "div.price span")),
			URL:    normalize.AbsoluteURL(href, base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (u UCC) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "ucc"}
	d.Name = docFirstText(doc, "#product > div.title.page-title", "h1.page-title", "h1")
	d.Price = normalize.CleanPrice(docFirstText(doc,
		"#product div.product-price-group div.price-group div",
		"div.price-group div.product-price"))
	d.InStock = boolPtr(doc.Find("li.product-stock.in-stock").Length() > 0)
	if img := firstAttr(doc.Selection, "src", "div.product-image img"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinLines(deepTexts(doc.Selection, "div.short_description_product-page ul"))
	d.Description = normalize.JoinLines(deepTexts(doc.Selection, "div.block-wrapper > div"))
	return d
}

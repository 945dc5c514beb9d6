package adapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// Startech extracts startech.com.bd pages.
//
// Token policy: ALL query tokens must appear in the listing title.
// Stock: listings with a positive price are purchasable; the detail page has
// an explicit status cell that must read "in stock".
type Startech struct{}

func (Startech) Site() Site {
	return Site{ID: "startech", Name: "Startech", Domain: "www.startech.com.bd"}
}

func (Startech) SearchURL(tokens []string) string {
	return "https://www.startech.com.bd/product/search?search=" + url.QueryEscape(strings.Join(tokens, " "))
}

func (s Startech) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find("div.p-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "h4.p-item-name a")
		if title == "" || !matchAll(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item, "div.p-item-price span"))
		hits = append(hits, RawHit{
			SiteID:  "startech",
			Title:   title,
			Price:   price,
			InStock: stockFromPrice(price),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", "div.p-item-img a", "h4.p-item-name a"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (s Startech) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "startech"}
	d.Name = docFirstText(doc, "div.product-short-info h1.product-name", "h1.product-name")

	// Current price sits in <ins> when the product is discounted.
	d.Price = normalize.CleanPrice(docFirstText(doc,
		"div.product-short-info td.product-price ins",
		"div.product-short-info td.product-price"))

	status := strings.ToLower(docFirstText(doc, "div.product-short-info td.product-status"))
	d.InStock = boolPtr(status == "in stock")

	if img := firstAttr(doc.Selection, "src", "img.main-img"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinLines(deepTexts(doc.Selection, "div.short-description ul"))
	d.Description = normalize.JoinLines(deepTexts(doc.Selection, "#description div.full-description"))
	return d
}

package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// RioInternational extracts riointernational.com.bd pages.
//
// Token policy: at least one query token in the listing title; the site's
// catalog is small and strict matching returns nothing for most queries.
// Stock: the detail page has no availability signal at all; records default
// to in-stock (documented per-site quirk, not a general rule). Listings
// fall back to price>0.
// Overviews join with " | "; descriptions are not extracted (the page
// embeds them as images).
type RioInternational struct{}

func (RioInternational) Site() Site {
	return Site{ID: "riointernational", Name: "Rio International", Domain: "riointernational.com.bd"}
}

func (RioInternational) SearchURL(tokens []string) string {
	return "https://riointernational.com.bd/search/product?keyword=" + strings.Join(tokens, "+")
}

func (r RioInternational) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find(".product").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "h4.product-name a")
		if title == "" || !matchAny(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item, ".product-price ins.new-price"))
		hits = append(hits, RawHit{
			SiteID:  "riointernational",
			Title:   title,
			Price:   price,
			InStock: stockFromPrice(price),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", "h4.product-name a"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (r RioInternational) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "riointernational"}
	d.Name = docFirstText(doc,
		"div.product.product-single h1",
		"h1",
		".product-title",
		".pd-title")
	d.Price = normalize.CleanPrice(docFirstText(doc,
		"div.pd-details-info-top div.product-price ins",
		"div.product-price ins",
		"ins.new-price",
		".price"))
	d.InStock = boolPtr(true)
	if img := firstAttr(doc.Selection, "src",
		"div.swiper-slide.swiper-slide-active div img",
		"img.main-image"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinInline(deepTexts(doc.Selection, "div.product-short-desc"))
	return d
}

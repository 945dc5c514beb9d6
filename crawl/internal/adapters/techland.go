package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// TechLand extracts techlandbd.com pages. The site uses utility-class
// markup, so selectors lean on stable structural ids and a handful of
// class fragments with fallbacks.
//
// Token policy: ALL query tokens must appear in the listing title.
// Stock: the availability text must contain "in stock", both modes.
type TechLand struct{}

func (TechLand) Site() Site {
	return Site{ID: "techland", Name: "TechLand", Domain: "www.techlandbd.com"}
}

func (TechLand) SearchURL(tokens []string) string {
	return "https://www.techlandbd.com/search/advance/product/result/" + strings.Join(tokens, "+")
}

func (t TechLand) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find("div.product-grid > div, div.grid > div").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "div.flex-grow div a", "h4 a", "a.product-title")
		if title == "" || !matchAll(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item, "span.text-red-600", "span.price"))
		stockText := strings.ToLower(firstText(item, "div.text-sm span", "span.stock-status"))
		hits = append(hits, RawHit{
			SiteID:  "techland",
			Title:   title,
			Price:   price,
			InStock: boolPtr(strings.Contains(stockText, "in stock")),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", "div.flex-grow div a", "h4 a", "a"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (t TechLand) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "techland"}
	d.Name = docFirstText(doc, "h1.font-bold", "h1", ".product-title")
	d.Price = normalize.CleanPrice(docFirstText(doc, "span.font-bold.text-lg", "span.text-2xl", "span.price"))

	stockText := strings.ToLower(docFirstText(doc, "span.text-green-600", "div.text-sm span"))
	d.InStock = boolPtr(strings.Contains(stockText, "in stock"))

	if img := firstAttr(doc.Selection, "src", "#main-image", "img[alt*=product]"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinLines(ownTexts(doc.Selection, "div.text-gray-600 li"))
	d.Description = normalize.JoinLines(deepTexts(doc.Selection, "#description-tab > div"))
	return d
}

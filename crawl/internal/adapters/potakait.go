package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// Potakait extracts potakait.com pages.
//
// Token policy: ALL query tokens must appear in the listing title.
// Stock: the detail page exposes no status text; the presence of the
// buy-now button is the signal. Listings fall back to price>0.
type Potakait struct{}

func (Potakait) Site() Site {
	return Site{ID: "potakait", Name: "Potakait", Domain: "potakait.com"}
}

func (Potakait) SearchURL(tokens []string) string {
	return "https://potakait.com/product/search?search=" + strings.Join(tokens, "+")
}

func (p Potakait) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find(".product-item.extra").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, ".product-info .title a")
		if title == "" || !matchAll(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item, ".price-info .price"))
		hits = append(hits, RawHit{
			SiteID:  "potakait",
			Title:   title,
			Price:   price,
			InStock: stockFromPrice(price),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", ".product-info .title a", "a"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (p Potakait) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "potakait"}
	d.Name = docFirstText(doc, "#product > div > h1", "h1")
	d.Price = normalize.CleanPrice(docFirstText(doc, "#product div.price-wrapper span.special", "div.price-wrapper span"))
	d.InStock = boolPtr(doc.Find("button#buy-now").Length() > 0)
	if img := firstAttr(doc.Selection, "src", "#main-image"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinLines(deepTexts(doc.Selection, "#product div.product-details__short-description ul"))
	d.Description = normalize.JoinLines(deepTexts(doc.Selection, "#description > div > div"))
	return d
}

package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wisecart/wisecrawl/crawl/internal/normalize"
)

// SumashTech extracts sumashtech.com pages.
//
// Token policy: majority match. All tokens for one- and two-word queries,
// otherwise at least half (minimum two), with a brand-plus-one escape hatch
// on the leading token. The site pads results with accessories, so ALL-token
// matching drops too much and any-token matching keeps too much.
// Stock: price>0 in both modes; the site shows no availability text.
// Overviews join with " | "; the source list is single-line spec-sheet bullets.
type SumashTech struct{}

func (SumashTech) Site() Site {
	return Site{ID: "sumashtech", Name: "Sumash Tech", Domain: "www.sumashtech.com"}
}

func (SumashTech) SearchURL(tokens []string) string {
	return "https://www.sumashtech.com/query/" + strings.Join(tokens, "%20")
}

func (s SumashTech) ParseSearch(doc *goquery.Document, tokens []string) []RawHit {
	var hits []RawHit
	base := baseURL(doc)
	doc.Find("div.product__items > div > div").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := firstText(item, "div > div > a > h3", "a h3")
		if title == "" || !matchMajority(title, tokens) {
			return true
		}
		price := searchPrice(firstText(item,
			"div.product__price > div > strong",
			"div.product__price",
			"strong"))
		hits = append(hits, RawHit{
			SiteID:  "sumashtech",
			Title:   title,
			Price:   price,
			InStock: stockFromPrice(price),
			URL:     normalize.AbsoluteURL(firstAttr(item, "href", "div > div > a", "a"), base),
		})
		return len(hits) < searchCap
	})
	return hits
}

func (s SumashTech) ParseDetail(doc *goquery.Document, pageURL string) RawDetail {
	d := RawDetail{SiteID: "sumashtech"}
	d.Name = docFirstText(doc, "div.product__widget div.main-info h1", "h1")
	d.Price = normalize.CleanPrice(docFirstText(doc,
		"div.product__sale_price b",
		"div.main-info span div div b",
		"div.main-info span div div"))
	// Price doubles as the stock signal here.
	d.InStock = stockFromPrice(d.Price)
	if img := firstAttr(doc.Selection, "src", "div.d-lg-block > img", "img"); img != "" {
		d.ImageURL = normalize.AbsoluteURL(img, pageURL)
	}
	d.Overview = normalize.JoinInline(ownTexts(doc.Selection, "div.product__short_description ul li"))
	d.Description = normalize.JoinLines(deepTexts(doc.Selection, "div.col-lg-8 > div:nth-child(2)"))
	return d
}

// Package normalize provides the shared text, price, and URL cleaning
// functions that every site adapter routes its extracted strings through.
//
// Storefront markup is inconsistent: prices carry currency symbols and
// thousands separators, overview lists mix whitespace and stray markup,
// listing links are relative. Records are only comparable across sites
// after passing through here.
package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

var (
	currencyRe = regexp.MustCompile(`[৳$₹€£]`)
	digitRunRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// strict strips every tag; extracted fragments occasionally carry
	// markup when sites nest raw HTML inside text nodes.
	strict = bluemonday.StrictPolicy()
)

// CleanPrice parses a raw price string into a number.
//
// It strips currency symbols and thousands separators, then parses the
// remainder as a decimal. If that fails it falls back to the first maximal
// digit run. Returns nil when no numeral can be recovered ("", "Free", "Call
// for price"); search-mode callers substitute 0 where their site's
// convention requires it.
func CleanPrice(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = currencyRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	if m := digitRunRe.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil {
			return &v
		}
	}
	return nil
}

// CleanFragment trims a single extracted fragment and strips any stray
// markup or entities it carries.
func CleanFragment(s string) string {
	s = strict.Sanitize(s)
	s = xhtml.UnescapeString(s)
	return strings.TrimSpace(s)
}

// JoinLines cleans fragments and joins the non-empty ones with newlines.
// Used for multi-line overviews and descriptions.
func JoinLines(fragments []string) string {
	return join(fragments, "\n")
}

// JoinInline cleans fragments and joins the non-empty ones with " | ".
// Used for single-line summaries.
func JoinInline(fragments []string) string {
	return join(fragments, " | ")
}

func join(fragments []string, sep string) string {
	var kept []string
	for _, f := range fragments {
		if c := CleanFragment(f); c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, sep)
}

// AbsoluteURL resolves a possibly-relative href against a base URL.
// On any parse failure the href is returned unchanged.
func AbsoluteURL(href, base string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// urlSafe reports whether a byte may appear verbatim in a canonical URL.
// Reserved delimiters (including % itself) count as safe so that encoding
// an already-encoded URL never re-encodes it.
func urlSafe(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	switch c {
	case '-', '.', '_', '~',
		':', '/', '?', '#', '[', ']', '@',
		'!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', '%':
		return true
	}
	return false
}

const upperhex = "0123456789ABCDEF"

// EncodeURL percent-encodes a URL into its canonical form.
//
// Encoding is idempotent: bytes that are already legal URL characters,
// including existing %XX escapes, pass through untouched, so
// EncodeURL(EncodeURL(u)) == EncodeURL(u). This is the invariant that makes
// the canonical URL usable as a unique key.
func EncodeURL(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if urlSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

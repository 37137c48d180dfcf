// Package selectors extracts structured records from rendered profile pages.
// The site ships several DOM layouts at once, so every extractor walks an
// ordered list of candidate selectors and takes the first that matches.
package selectors

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse builds a queryable document from rendered page HTML.
func Parse(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// firstText returns the trimmed text of the first element matched by any of
// the candidate selectors, in order.
func firstText(doc *goquery.Document, candidates ...string) string {
	for _, sel := range candidates {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}

// firstAttr returns the named attribute of the first element matched by any
// of the candidate selectors.
func firstAttr(doc *goquery.Document, attr string, candidates ...string) string {
	for _, sel := range candidates {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package selectors

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProfileMissing reports whether the page is an error page for a profile
// that does not exist or was removed.
func ProfileMissing(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").Text())
	if strings.Contains(title, "page not found") || strings.Contains(title, "content not found") {
		return true
	}

	missing := false
	doc.Find("h2, div[data-pagelet='NoContent']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		if strings.Contains(text, "content isn't available") ||
			strings.Contains(text, "page isn't available") ||
			strings.Contains(text, "link may be broken") {
			missing = true
			return false
		}
		return true
	})
	return missing
}

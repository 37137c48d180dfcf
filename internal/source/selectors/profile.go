package selectors

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/graphscout/graphscout/internal/graph"
)

var nameSelectors = []string{
	"h1.x1heor9g.x1qlqyl8.x1pd3egz.x1a2a7pz",
	"h1[dir='auto']",
	"h1.gmql0nx0.l94mrbxd",
}

var pictureSelectors = []string{
	"div.x6s0dn4.x78zum5.x1iyjqo2.x1n2onr6 img",
	"div[data-pagelet='ProfileActions'] div.xz74otr img",
	"svg[role='img'] image",
}

var bioSelectors = []string{
	"div[data-pagelet='ProfileIntro'] span",
	"div.xieb3on div.xq8finb",
}

// Profile extracts the visible attributes of a rendered profile page. The
// caller fills in identity fields (id, username, canonical URL) afterwards;
// only what the DOM carries is populated here.
func Profile(doc *goquery.Document) graph.ProfileRecord {
	rec := graph.ProfileRecord{
		DisplayName: extractName(doc),
		PictureURL:  extractPicture(doc),
		Bio:         extractBio(doc),
	}
	extractAbout(doc, &rec)
	return rec
}

func extractName(doc *goquery.Document) string {
	if name := firstText(doc, nameSelectors...); name != "" {
		return collapseSpace(name)
	}
	// The page title carries the name even on layouts we have no
	// selector for yet.
	title := strings.TrimSpace(doc.Find("title").Text())
	if name, _, found := strings.Cut(title, " | Facebook"); found {
		return strings.TrimSpace(name)
	}
	return ""
}

func extractPicture(doc *goquery.Document) string {
	if src := firstAttr(doc, "src", pictureSelectors...); src != "" {
		return src
	}
	return firstAttr(doc, "xlink:href", "svg image")
}

func extractBio(doc *goquery.Document) string {
	for _, sel := range bioSelectors {
		bio := ""
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapseSpace(s.Text())
			// Intro tiles mix the bio with badges and counters; a
			// short paragraph is the bio.
			if len(text) > 10 && len(text) < 200 {
				bio = text
				return false
			}
			return true
		})
		if bio != "" {
			return bio
		}
	}
	return ""
}

// About-tab sections appear in a fixed order: work, education, places lived.
const (
	workSection      = "div[data-pagelet='ProfileAppSection_0']"
	educationSection = "div[data-pagelet='ProfileAppSection_1']"
	placesSection    = "div[data-pagelet='ProfileAppSection_2']"
)

func extractAbout(doc *goquery.Document, rec *graph.ProfileRecord) {
	doc.Find(workSection + " div[role='button']").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text == "" || strings.Contains(text, "Add a workplace") {
			return
		}
		rec.Work = append(rec.Work, graph.Affiliation{Name: text})
	})

	doc.Find(educationSection + " div[role='button']").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text == "" || strings.Contains(text, "Add a school") {
			return
		}
		rec.Education = append(rec.Education, graph.Affiliation{Name: text})
	})

	doc.Find(placesSection + " div[role='button']").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		lower := strings.ToLower(text)
		switch {
		case strings.HasPrefix(lower, "lives in"):
			rec.CurrentCity = strings.TrimSpace(text[len("lives in"):])
		case strings.HasPrefix(lower, "from"):
			rec.Hometown = strings.TrimSpace(text[len("from"):])
		}
	})

	if rec.Location == "" {
		rec.Location = rec.CurrentCity
	}
}

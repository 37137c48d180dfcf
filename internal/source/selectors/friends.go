package selectors

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FriendTile is one entry scraped from a friends list, before identity
// normalization. Href is whatever the anchor carried, absolute or relative.
type FriendTile struct {
	Href          string
	Name          string
	PictureURL    string
	MutualFriends int
}

var friendTileSelectors = []string{
	"div[role='main'] div.x1qjc9v5 a[href*='/user/']",
	"div.xb0tzng a[href*='/profile.php']",
	"div[data-pagelet='ProfileGridTile']",
	"div[role='main'] a[href*='/friends/']",
}

var friendNameSelectors = []string{
	"span.x193iq5w.xeuugli.x13faqbe.x1vvkbs.x1xmvt09",
	"span[dir='auto']",
	".x1i10hfl",
}

var mutualCountRe = regexp.MustCompile(`(\d[\d,]*)`)

// FriendTiles extracts the friend entries currently present in the document.
// The first tile selector that matches anything wins; layouts do not mix.
func FriendTiles(doc *goquery.Document) []FriendTile {
	var elements *goquery.Selection
	for _, sel := range friendTileSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			elements = found
			break
		}
	}
	if elements == nil {
		return nil
	}

	var tiles []FriendTile
	elements.Each(func(_ int, s *goquery.Selection) {
		tile, ok := friendTile(s)
		if ok {
			tiles = append(tiles, tile)
		}
	})
	return tiles
}

func friendTile(s *goquery.Selection) (FriendTile, bool) {
	link := s
	if !s.Is("a") {
		link = s.Find("a").First()
		if link.Length() == 0 {
			return FriendTile{}, false
		}
	}
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return FriendTile{}, false
	}

	tile := FriendTile{Href: href}

	for _, sel := range friendNameSelectors {
		if name := collapseSpace(s.Find(sel).First().Text()); name != "" {
			tile.Name = name
			break
		}
	}
	if tile.Name == "" {
		tile.Name = collapseSpace(link.Text())
	}

	if src, ok := s.Find("img").First().Attr("src"); ok {
		tile.PictureURL = src
	}

	s.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.ToLower(span.Text())
		if !strings.Contains(text, "mutual") || !strings.Contains(text, "friend") {
			return true
		}
		if m := mutualCountRe.FindString(text); m != "" {
			n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
			if err == nil {
				tile.MutualFriends = n
			}
		}
		return false
	})

	return tile, true
}

// FriendsRestricted reports whether a friends page rendered without visible
// content. An explicit no-content banner is restricted; so is a main region
// with none of the known tile layouts, since a public list always renders at
// least one.
func FriendsRestricted(doc *goquery.Document) bool {
	restricted := false
	doc.Find("div[data-pagelet='NoContent'], div.x1n2onr6.x1qjc9v5 h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		if strings.Contains(text, "no content") ||
			strings.Contains(text, "isn't available") ||
			strings.Contains(text, "available right now") {
			restricted = true
			return false
		}
		return true
	})
	if restricted {
		return true
	}

	for _, sel := range friendTileSelectors[:3] {
		if doc.Find(sel).Length() > 0 {
			return false
		}
	}
	return true
}

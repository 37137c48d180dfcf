package selectors

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/graphscout/graphscout/internal/graph"
)

var postDateRe = regexp.MustCompile(`^(January|February|March|April|May|June|July|August|September|October|November|December|[0-9]+h|[0-9]+d|[0-9]+m|Yesterday|Today)`)

var plainCountRe = regexp.MustCompile(`^[0-9,]+$`)

// Posts extracts the timeline posts currently present in the document. Not
// every article element is a post; elements without a permalink are skipped.
func Posts(doc *goquery.Document, profileID string, now time.Time) []graph.PostRecord {
	var posts []graph.PostRecord
	seen := make(map[string]struct{})

	doc.Find("div[role='article']").Each(func(_ int, s *goquery.Selection) {
		permalink, ok := s.Find("a[href*='/posts/']").First().Attr("href")
		if !ok {
			return
		}
		id := postID(permalink)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		posts = append(posts, postRecord(s, id, profileID, permalink, now))
	})
	return posts
}

func postRecord(s *goquery.Selection, id, profileID, permalink string, now time.Time) graph.PostRecord {
	post := graph.PostRecord{
		ID:          id,
		ProfileID:   profileID,
		PostURL:     permalink,
		Content:     collapseSpace(s.Find("div[data-ad-comet-preview='message']").First().Text()),
		CollectedAt: now,
	}

	s.Find("a[href*='posts'] span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if postDateRe.MatchString(text) {
			post.PostedAt = text
			return false
		}
		return true
	})

	s.Find("img[src*='scontent'], video").Each(func(_ int, media *goquery.Selection) {
		src, ok := media.Attr("src")
		if !ok || src == "" || strings.Contains(src, "emoji") {
			return
		}
		for _, existing := range post.MediaURLs {
			if existing == src {
				return
			}
		}
		post.MediaURLs = append(post.MediaURLs, src)
	})

	extractCounts(s, &post)
	return post
}

// Engagement counters render as bare numbers followed by a label span, so
// the meaning of each number comes from the span after it.
func extractCounts(s *goquery.Selection, post *graph.PostRecord) {
	spans := s.Find("span[dir='auto']")
	texts := make([]string, 0, spans.Length())
	spans.Each(func(_ int, span *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(span.Text()))
	})

	for i, text := range texts {
		if !plainCountRe.MatchString(text) && !strings.ContainsAny(text, "KM") {
			continue
		}
		value, ok := parseCount(text)
		if !ok {
			continue
		}
		if i+1 < len(texts) {
			next := strings.ToLower(texts[i+1])
			switch {
			case strings.Contains(next, "comment"):
				post.CommentCount = value
				continue
			case strings.Contains(next, "share"):
				post.ShareCount = value
				continue
			}
		}
		if post.ReactionCount == 0 {
			post.ReactionCount = value
		}
	}
}

// parseCount parses counter text like "1,234", "5.3K", or "1M".
func parseCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	multiplier := 1
	switch {
	case strings.HasSuffix(text, "K"):
		multiplier = 1_000
		text = strings.TrimSuffix(text, "K")
	case strings.HasSuffix(text, "M"):
		multiplier = 1_000_000
		text = strings.TrimSuffix(text, "M")
	}
	text = strings.ReplaceAll(text, ",", "")

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return int(f * float64(multiplier)), true
}

// postID pulls the story id out of a permalink, ignoring query noise.
func postID(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "posts" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

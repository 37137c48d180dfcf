// Package snapshot archives raw rendered pages. Providers abstract the blob
// destination so the collector can run against Google Cloud Storage, the
// local filesystem, or nothing at all.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Provider persists one rendered page per call. Implementations derive the
// object key from the page URL and capture time.
type Provider interface {
	// SavePage archives the rendered HTML of the given page URL.
	SavePage(ctx context.Context, pageURL string, html []byte) error

	// Close releases any client connections.
	Close() error
}

// NoOpProvider discards every snapshot. Used when archiving is disabled.
type NoOpProvider struct{}

// SavePage for NoOpProvider does nothing and always returns nil.
func (NoOpProvider) SavePage(_ context.Context, _ string, _ []byte) error { return nil }

// Close for NoOpProvider does nothing and always returns nil.
func (NoOpProvider) Close() error { return nil }

// objectName builds a stable, filesystem-safe object key for a page capture:
// host/path with unsafe runes flattened, suffixed with the capture time.
func objectName(pageURL string, at time.Time) string {
	name := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		name = u.Host + u.EscapedPath()
		if u.RawQuery != "" {
			name += "_" + u.RawQuery
		}
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("%s_%s.html", strings.Trim(b.String(), "_"), at.UTC().Format("20060102T150405"))
}

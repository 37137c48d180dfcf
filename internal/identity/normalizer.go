// Package identity canonicalizes profile references. Every URL variant that
// points at the same profile must normalize to the same canonical id, which
// is the dedup key used by the frontier, caches, and record stores.
package identity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/graphscout/graphscout/internal/graph"
)

const canonicalHost = "www.facebook.com"

var recognizedHosts = map[string]struct{}{
	"facebook.com":        {},
	"www.facebook.com":    {},
	"m.facebook.com":      {},
	"mbasic.facebook.com": {},
	"fb.com":              {},
	"www.fb.com":          {},
}

// Reference is a normalized profile reference. ID is the canonical dedup
// key; URL is the byte-identical canonical URL used for downstream fetches.
type Reference struct {
	ID  string
	URL string
}

// Normalize parses a raw profile reference and produces its canonical form.
// Numeric-id references (profile.php?id=N) canonicalize to the id value;
// username references canonicalize to the first path segment, case-sensitive,
// with trailing segments stripped. Unknown hosts fail with
// graph.ErrInvalidReference.
func Normalize(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", graph.ErrInvalidReference)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %v", graph.ErrInvalidReference, err)
	}

	host := strings.ToLower(parsed.Hostname())
	if _, ok := recognizedHosts[host]; !ok {
		return Reference{}, fmt.Errorf("%w: unrecognized host %q", graph.ErrInvalidReference, parsed.Hostname())
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return Reference{}, fmt.Errorf("%w: no profile in path", graph.ErrInvalidReference)
	}

	if firstSegment(path) == "profile.php" {
		id := parsed.Query().Get("id")
		if id == "" {
			return Reference{}, fmt.Errorf("%w: profile.php reference without id parameter", graph.ErrInvalidReference)
		}
		return Reference{
			ID:  id,
			URL: fmt.Sprintf("https://%s/profile.php?id=%s", canonicalHost, id),
		}, nil
	}

	slug := firstSegment(path)
	return Reference{
		ID:  slug,
		URL: fmt.Sprintf("https://%s/%s", canonicalHost, slug),
	}, nil
}

// FriendsURL returns the friends-page URL for a canonical reference.
func FriendsURL(ref Reference) string {
	if strings.Contains(ref.URL, "profile.php?id=") {
		return fmt.Sprintf("https://%s/profile.php?id=%s&sk=friends", canonicalHost, ref.ID)
	}
	return ref.URL + "/friends"
}

// AboutURL returns the about-page URL for a canonical reference.
func AboutURL(ref Reference) string {
	if strings.Contains(ref.URL, "profile.php?id=") {
		return fmt.Sprintf("https://%s/profile.php?id=%s&sk=about", canonicalHost, ref.ID)
	}
	return ref.URL + "/about"
}

// IsNumericID reports whether the reference uses the numeric profile.php form.
func IsNumericID(ref Reference) bool {
	return strings.Contains(ref.URL, "profile.php?id=")
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphscout/graphscout/internal/graph"
)

func TestNormalize_UsernameForms(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"desktop", "https://www.facebook.com/zuck"},
		{"bare domain", "https://facebook.com/zuck"},
		{"mobile", "https://m.facebook.com/zuck"},
		{"basic mobile", "https://mbasic.facebook.com/zuck"},
		{"short domain", "https://fb.com/zuck"},
		{"trailing slash", "https://www.facebook.com/zuck/"},
		{"trailing segments", "https://www.facebook.com/zuck/about/work"},
		{"no scheme", "www.facebook.com/zuck"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ref, err := Normalize(tc.raw)
			require.NoError(t, err)
			require.Equal(t, "zuck", ref.ID)
			require.Equal(t, "https://www.facebook.com/zuck", ref.URL)
		})
	}
}

func TestNormalize_NumericIDForm(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"https://www.facebook.com/profile.php?id=4",
		"https://m.facebook.com/profile.php?id=4&ref=bookmarks",
		"https://facebook.com/profile.php?id=4",
	} {
		ref, err := Normalize(raw)
		require.NoError(t, err)
		require.Equal(t, "4", ref.ID)
		require.Equal(t, "https://www.facebook.com/profile.php?id=4", ref.URL)
	}
}

func TestNormalize_SameProfileSameCanonicalURL(t *testing.T) {
	t.Parallel()

	a, err := Normalize("https://m.facebook.com/some.user/friends")
	require.NoError(t, err)
	b, err := Normalize("fb.com/some.user")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, a.URL, b.URL)
}

func TestNormalize_IDIsCaseSensitive(t *testing.T) {
	t.Parallel()

	lower, err := Normalize("https://www.facebook.com/alice")
	require.NoError(t, err)
	upper, err := Normalize("https://www.facebook.com/Alice")
	require.NoError(t, err)
	require.NotEqual(t, lower.ID, upper.ID)
}

func TestNormalize_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"unknown host", "https://example.com/zuck"},
		{"lookalike host", "https://facebook.com.evil.test/zuck"},
		{"no path", "https://www.facebook.com/"},
		{"profile.php without id", "https://www.facebook.com/profile.php?ref=home"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(tc.raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, graph.ErrInvalidReference))
		})
	}
}

func TestFriendsURL(t *testing.T) {
	t.Parallel()

	ref, err := Normalize("https://www.facebook.com/zuck")
	require.NoError(t, err)
	require.Equal(t, "https://www.facebook.com/zuck/friends", FriendsURL(ref))

	numeric, err := Normalize("https://www.facebook.com/profile.php?id=4")
	require.NoError(t, err)
	require.Equal(t, "https://www.facebook.com/profile.php?id=4&sk=friends", FriendsURL(numeric))
}

package traverse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphscout/graphscout/internal/graph"
)

// fakeSource serves scripted results keyed by canonical profile URL.
type fakeSource struct {
	profiles     map[string]graph.ProfileResult
	profileErrs  map[string]error
	friendPages  map[string][]graph.FriendsPage
	postPages    map[string][]graph.PostsPage
	profileCalls map[string]int
	friendCalls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		profiles:     make(map[string]graph.ProfileResult),
		profileErrs:  make(map[string]error),
		friendPages:  make(map[string][]graph.FriendsPage),
		postPages:    make(map[string][]graph.PostsPage),
		profileCalls: make(map[string]int),
		friendCalls:  make(map[string]int),
	}
}

type fakeCursor struct{ n int }

func (c *fakeCursor) Attempt() int { return c.n }

func (f *fakeSource) FetchProfile(_ context.Context, url string) (graph.ProfileResult, error) {
	f.profileCalls[url]++
	if err := f.profileErrs[url]; err != nil {
		// A failing source reports the error with a zero result.
		return graph.ProfileResult{}, err
	}
	if res, ok := f.profiles[url]; ok {
		return res, nil
	}
	return graph.ProfileResult{Kind: graph.OutcomeNotFound}, nil
}

func (f *fakeSource) FetchFriendsPage(_ context.Context, url string, cursor graph.FriendCursor) (graph.FriendsPage, error) {
	f.friendCalls[url]++
	idx := 0
	if c, ok := cursor.(*fakeCursor); ok {
		idx = c.n
	}
	pages := f.friendPages[url]
	if idx >= len(pages) {
		return graph.FriendsPage{Kind: graph.OutcomeOK, Done: true, Cursor: &fakeCursor{n: idx + 1}}, nil
	}
	page := pages[idx]
	page.Cursor = &fakeCursor{n: idx + 1}
	return page, nil
}

func (f *fakeSource) FetchPostsPage(_ context.Context, url string, cursor graph.FriendCursor) (graph.PostsPage, error) {
	idx := 0
	if c, ok := cursor.(*fakeCursor); ok {
		idx = c.n
	}
	pages := f.postPages[url]
	if idx >= len(pages) {
		return graph.PostsPage{Kind: graph.OutcomeOK, Done: true, Cursor: &fakeCursor{n: idx + 1}}, nil
	}
	page := pages[idx]
	page.Cursor = &fakeCursor{n: idx + 1}
	return page, nil
}

// memStore records every put for assertions.
type memStore struct {
	profiles  map[string]graph.ProfileRecord
	edges     []graph.FriendshipEdge
	friends   map[string][]graph.Friend
	posts     map[string][]graph.PostRecord
	summaries []graph.TraversalSummary
	runSheets [][]graph.ProfileRecord
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]graph.ProfileRecord),
		friends:  make(map[string][]graph.Friend),
		posts:    make(map[string][]graph.PostRecord),
	}
}

func (m *memStore) PutProfile(_ context.Context, p graph.ProfileRecord) error {
	m.profiles[p.ID] = p
	return nil
}

func (m *memStore) GetProfile(_ context.Context, id string) (graph.ProfileRecord, bool, error) {
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *memStore) PutEdge(_ context.Context, e graph.FriendshipEdge) error {
	m.edges = append(m.edges, e)
	return nil
}

func (m *memStore) PutFriends(_ context.Context, id string, friends []graph.Friend) error {
	m.friends[id] = friends
	return nil
}

func (m *memStore) PutPosts(_ context.Context, id string, posts []graph.PostRecord) error {
	m.posts[id] = posts
	return nil
}

func (m *memStore) PutRunSummary(_ context.Context, s graph.TraversalSummary, profiles []graph.ProfileRecord) error {
	m.summaries = append(m.summaries, s)
	m.runSheets = append(m.runSheets, profiles)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) edgeKeys() []string {
	keys := make([]string, 0, len(m.edges))
	for _, e := range m.edges {
		keys = append(keys, e.Key())
	}
	return keys
}

const urlPrefix = "https://www.facebook.com/"

func okProfile(id string) graph.ProfileResult {
	return graph.ProfileResult{
		Kind: graph.OutcomeOK,
		Profile: graph.ProfileRecord{
			ID:         id,
			Username:   id,
			ProfileURL: urlPrefix + id,
		},
	}
}

func friendOf(id string) graph.Friend {
	return graph.Friend{ID: id, DisplayName: id, ProfileURL: urlPrefix + id}
}

func friendsPage(done bool, ids ...string) graph.FriendsPage {
	page := graph.FriendsPage{Kind: graph.OutcomeOK, Done: done}
	for _, id := range ids {
		page.Friends = append(page.Friends, friendOf(id))
	}
	return page
}

func newEngine(t *testing.T, cfg Config, src graph.PageDataSource, store graph.RecordStore) *Engine {
	t.Helper()
	eng, err := New(cfg, Deps{Source: src, Store: store})
	require.NoError(t, err)
	return eng
}

func TestTraverseDepthOne(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.profiles[urlPrefix+"bob"] = okProfile("bob")
	src.profiles[urlPrefix+"carol"] = okProfile("carol")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 1}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunCompleted, summary.Status)
	require.Equal(t, 3, summary.ProfilesVisited)
	require.Zero(t, summary.ProfilesFailed)
	require.Equal(t, 2, summary.EdgesCollected)
	require.Equal(t, 1, summary.MaxDepthReached)
	require.Zero(t, summary.FrontierPending)

	require.ElementsMatch(t, []string{"alice_bob", "alice_carol"}, store.edgeKeys())
	require.Len(t, store.profiles, 3)

	// Depth-limit nodes are fetched but never expanded.
	require.Zero(t, src.friendCalls[urlPrefix+"bob"])
	require.Zero(t, src.friendCalls[urlPrefix+"carol"])
}

func TestTraverseBudgetExhausted(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 2, MaxProfiles: 1}, src, store)

	summary, err := eng.Traverse(context.Background(), "https://www.facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunBudgetExhausted, summary.Status)
	require.Equal(t, 1, summary.ProfilesVisited)
	require.Equal(t, 2, summary.FrontierPending)
	require.Equal(t, 2, summary.EdgesCollected)
	require.Len(t, store.profiles, 1)
}

func TestTraverseMutualFriendsVisitOnce(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.profiles[urlPrefix+"bob"] = okProfile("bob")
	src.profiles[urlPrefix+"carol"] = okProfile("carol")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob")}
	src.friendPages[urlPrefix+"bob"] = []graph.FriendsPage{friendsPage(true, "alice", "carol")}
	src.friendPages[urlPrefix+"carol"] = []graph.FriendsPage{friendsPage(true)}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 3}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunCompleted, summary.Status)
	require.Equal(t, 3, summary.ProfilesVisited)
	for _, url := range []string{urlPrefix + "alice", urlPrefix + "bob", urlPrefix + "carol"} {
		require.Equal(t, 1, src.profileCalls[url], url)
	}

	// Both directions of the alice/bob pair are kept.
	require.ElementsMatch(t, []string{"alice_bob", "bob_alice", "bob_carol"}, store.edgeKeys())
}

func TestTraverseRestrictedFriendsList(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{{Kind: graph.OutcomeRestricted, Done: true}}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 2}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunCompleted, summary.Status)
	require.Equal(t, 1, summary.ProfilesVisited)
	require.Zero(t, summary.ProfilesFailed)
	require.Zero(t, summary.EdgesCollected)
	require.Len(t, store.profiles, 1)
}

func TestTraverseTransientNodeFailureTolerated(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.profiles[urlPrefix+"bob"] = graph.ProfileResult{Kind: graph.OutcomeTransientError}
	src.profiles[urlPrefix+"carol"] = okProfile("carol")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 1}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunCompleted, summary.Status)
	require.Equal(t, 3, summary.ProfilesVisited)
	require.Equal(t, 1, summary.ProfilesFailed)
	require.Len(t, store.profiles, 2)
}

func TestTraverseSessionLostAborts(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.profileErrs[urlPrefix+"bob"] = graph.ErrSessionLost
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 2}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.ErrorIs(t, err, graph.ErrSessionLost)

	require.Equal(t, graph.RunAborted, summary.Status)
	require.Equal(t, 1, summary.ProfilesVisited)

	// The summary still lands in the store.
	require.Len(t, store.summaries, 1)
	require.Equal(t, graph.RunAborted, store.summaries[0].Status)
	require.Len(t, store.runSheets[0], 1)
}

// repeatSource returns the same friends page on every call and never reports
// Done, the worst case for a pagination loop that trusts its source.
type repeatSource struct {
	page  graph.FriendsPage
	calls int
}

func (r *repeatSource) FetchProfile(context.Context, string) (graph.ProfileResult, error) {
	return graph.ProfileResult{Kind: graph.OutcomeNotFound}, nil
}

func (r *repeatSource) FetchFriendsPage(_ context.Context, _ string, _ graph.FriendCursor) (graph.FriendsPage, error) {
	r.calls++
	return r.page, nil
}

func (r *repeatSource) FetchPostsPage(context.Context, string, graph.FriendCursor) (graph.PostsPage, error) {
	return graph.PostsPage{Kind: graph.OutcomeOK, Done: true}, nil
}

func TestCollectFriendsDeduplicatesRepeatedPages(t *testing.T) {
	t.Parallel()

	src := &repeatSource{page: friendsPage(false, "bob", "carol", "dave")}
	store := newMemStore()
	eng := newEngine(t, Config{StallLimit: 3, MaxFriendPages: 20}, src, store)

	friends, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 0)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)

	// Repeating pages yield each friend once, and pages with nothing new
	// count toward the stall limit.
	require.ElementsMatch(t, []graph.Friend{friendOf("bob"), friendOf("carol"), friendOf("dave")}, friends)
	require.Equal(t, 4, src.calls)
	require.Len(t, store.edges, 3)
}

// growingSource yields one previously unseen friend per page with a nil
// cursor and never reports Done.
type growingSource struct {
	repeatSource
	next int
}

func (g *growingSource) FetchFriendsPage(_ context.Context, _ string, _ graph.FriendCursor) (graph.FriendsPage, error) {
	g.calls++
	g.next++
	return friendsPage(false, fmt.Sprintf("f%d", g.next)), nil
}

func TestCollectFriendsBoundedByPageCap(t *testing.T) {
	t.Parallel()

	src := &growingSource{}
	eng := newEngine(t, Config{StallLimit: 3, MaxFriendPages: 5}, src, newMemStore())

	friends, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 0)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)
	require.Len(t, friends, 5)
	require.Equal(t, 5, src.calls)
}

func TestCollectFriendsStallDetection(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	empty := graph.FriendsPage{Kind: graph.OutcomeOK}
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{
		friendsPage(false, "bob", "carol"),
		empty, empty, empty, empty, empty,
	}

	store := newMemStore()
	eng := newEngine(t, Config{StallLimit: 3, MaxFriendPages: 50}, src, store)

	friends, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 0)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)
	require.Len(t, friends, 2)

	// One productive load plus three consecutive stalls.
	require.Equal(t, 4, src.friendCalls[urlPrefix+"alice"])
}

func TestCollectFriendsRestrictedIsCached(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{{Kind: graph.OutcomeRestricted, Done: true}}

	store := newMemStore()
	eng := newEngine(t, Config{}, src, store)

	for i := 0; i < 2; i++ {
		friends, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 0)
		require.NoError(t, err)
		require.Equal(t, graph.OutcomeRestricted, kind)
		require.Empty(t, friends)
	}
	require.Equal(t, 1, src.friendCalls[urlPrefix+"alice"])
}

func TestCollectFriendsServedFromCache(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol", "dave")}

	store := newMemStore()
	eng := newEngine(t, Config{}, src, store)

	first, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 0)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)
	require.Len(t, first, 3)

	second, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 2)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)
	require.Len(t, second, 2)

	require.Equal(t, 1, src.friendCalls[urlPrefix+"alice"])
}

func TestCollectFriendsHonorsMax(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{
		friendsPage(false, "f1", "f2", "f3"),
		friendsPage(false, "f4", "f5", "f6"),
		friendsPage(true, "f7"),
	}

	store := newMemStore()
	eng := newEngine(t, Config{}, src, store)

	friends, kind, err := eng.CollectFriends(context.Background(), "facebook.com/alice", 5)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, kind)
	require.Len(t, friends, 5)
	require.Len(t, store.edges, 5)
	require.Len(t, store.friends["alice"], 5)
}

func TestTraverseFetchErrorCountsFailed(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.profileErrs[urlPrefix+"bob"] = errors.New("render timeout")
	src.profiles[urlPrefix+"carol"] = okProfile("carol")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 1}, src, store)

	summary, err := eng.Traverse(context.Background(), "facebook.com/alice")
	require.NoError(t, err)

	require.Equal(t, graph.RunCompleted, summary.Status)
	require.Equal(t, 3, summary.ProfilesVisited)
	require.Equal(t, 1, summary.ProfilesFailed)

	// The failing node must not leave an empty record behind.
	require.Len(t, store.profiles, 2)
	require.NotContains(t, store.profiles, "bob")
	require.NotContains(t, store.profiles, "")
}

func TestTraverseCancelledContextAborts(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.friendPages[urlPrefix+"alice"] = []graph.FriendsPage{friendsPage(true, "bob", "carol")}

	store := newMemStore()
	eng := newEngine(t, Config{MaxDepth: 2}, src, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := eng.Traverse(ctx, "facebook.com/alice")
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, graph.RunAborted, summary.Status)
	require.Zero(t, summary.ProfilesVisited)
	require.Zero(t, src.profileCalls[urlPrefix+"alice"])

	// The aborted summary still lands in the store.
	require.Len(t, store.summaries, 1)
	require.Equal(t, graph.RunAborted, store.summaries[0].Status)
}

func TestExtractProfileWithPosts(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.profiles[urlPrefix+"alice"] = okProfile("alice")
	src.postPages[urlPrefix+"alice"] = []graph.PostsPage{
		{Kind: graph.OutcomeOK, Posts: []graph.PostRecord{{ID: "p1", ProfileID: "alice"}, {ID: "p2", ProfileID: "alice"}}},
		{Kind: graph.OutcomeOK, Posts: []graph.PostRecord{{ID: "p3", ProfileID: "alice"}}, Done: true},
	}

	store := newMemStore()
	eng := newEngine(t, Config{}, src, store)

	res, posts, err := eng.ExtractProfile(context.Background(), "facebook.com/alice", 2)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeOK, res.Kind)
	require.Len(t, posts, 2)
	require.Len(t, store.posts["alice"], 2)
	require.Contains(t, store.profiles, "alice")
}

// repeatPostsSource serves a fixed profile and the same posts page forever.
type repeatPostsSource struct {
	repeatSource
	postsPage graph.PostsPage
	postCalls int
}

func (r *repeatPostsSource) FetchProfile(context.Context, string) (graph.ProfileResult, error) {
	return okProfile("alice"), nil
}

func (r *repeatPostsSource) FetchPostsPage(context.Context, string, graph.FriendCursor) (graph.PostsPage, error) {
	r.postCalls++
	return r.postsPage, nil
}

func TestExtractProfilePostsDeduplicated(t *testing.T) {
	t.Parallel()

	src := &repeatPostsSource{
		postsPage: graph.PostsPage{
			Kind:  graph.OutcomeOK,
			Posts: []graph.PostRecord{{ID: "p1", ProfileID: "alice"}, {ID: "p2", ProfileID: "alice"}},
		},
	}
	store := newMemStore()
	eng := newEngine(t, Config{StallLimit: 3, MaxPostPages: 10}, src, store)

	_, posts, err := eng.ExtractProfile(context.Background(), "facebook.com/alice", 10)
	require.NoError(t, err)

	// One productive load, then three pages with nothing new.
	require.Len(t, posts, 2)
	require.Equal(t, 4, src.postCalls)
	require.Len(t, store.posts["alice"], 2)
}

func TestExtractProfileNotFound(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	store := newMemStore()
	eng := newEngine(t, Config{}, src, store)

	res, posts, err := eng.ExtractProfile(context.Background(), "facebook.com/ghost", 0)
	require.NoError(t, err)
	require.Equal(t, graph.OutcomeNotFound, res.Kind)
	require.Empty(t, posts)
	require.Empty(t, store.profiles)
}

func TestExtractProfileRejectsUnknownHost(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, Config{}, newFakeSource(), newMemStore())

	_, _, err := eng.ExtractProfile(context.Background(), "https://twitter.com/alice", 0)
	require.ErrorIs(t, err, graph.ErrInvalidReference)
}

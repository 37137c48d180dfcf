package graph

import "context"

// PageDataSource produces raw profile, friends, and post data for a
// canonical profile URL. Implementations own the browser session, selector
// strategies, and pacing; the traversal engine only sees tagged results.
type PageDataSource interface {
	// FetchProfile navigates to the profile page and extracts its
	// attributes. A returned error other than ErrSessionLost is treated
	// as OutcomeTransientError by callers.
	FetchProfile(ctx context.Context, canonicalURL string) (ProfileResult, error)

	// FetchFriendsPage returns the next visible batch of friends. Pass a
	// nil cursor to start; pass the returned cursor to continue. The
	// source reports Done when pagination is exhausted, but callers must
	// not rely on Done ever arriving (see stall detection).
	FetchFriendsPage(ctx context.Context, canonicalURL string, cursor FriendCursor) (FriendsPage, error)

	// FetchPostsPage returns the next visible batch of timeline posts.
	FetchPostsPage(ctx context.Context, canonicalURL string, cursor FriendCursor) (PostsPage, error)
}

// RecordStore persists collected records, keyed by canonical id. Put
// operations are idempotent overwrites.
type RecordStore interface {
	PutProfile(ctx context.Context, profile ProfileRecord) error
	GetProfile(ctx context.Context, id string) (ProfileRecord, bool, error)
	PutEdge(ctx context.Context, edge FriendshipEdge) error
	PutFriends(ctx context.Context, profileID string, friends []Friend) error
	PutPosts(ctx context.Context, profileID string, posts []PostRecord) error
	PutRunSummary(ctx context.Context, summary TraversalSummary, profiles []ProfileRecord) error
	Close() error
}

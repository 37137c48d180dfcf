package headless

import (
	"context"

	"github.com/graphscout/graphscout/internal/graph"
)

// NoOp is a graph.PageDataSource that finds nothing. Useful for wiring
// tests and dry runs that exercise everything except the browser.
type NoOp struct{}

// FetchProfile always reports the profile as not found.
func (NoOp) FetchProfile(context.Context, string) (graph.ProfileResult, error) {
	return graph.ProfileResult{Kind: graph.OutcomeNotFound}, nil
}

// FetchFriendsPage always returns an empty, finished page.
func (NoOp) FetchFriendsPage(context.Context, string, graph.FriendCursor) (graph.FriendsPage, error) {
	return graph.FriendsPage{Kind: graph.OutcomeOK, Done: true}, nil
}

// FetchPostsPage always returns an empty, finished page.
func (NoOp) FetchPostsPage(context.Context, string, graph.FriendCursor) (graph.PostsPage, error) {
	return graph.PostsPage{Kind: graph.OutcomeOK, Done: true}, nil
}

// Package traverse implements the collection operations: single-profile
// extraction, friend collection with scroll pagination, and the bounded
// breadth-first network traversal.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/graphscout/graphscout/internal/cache"
	"github.com/graphscout/graphscout/internal/checkpoint"
	"github.com/graphscout/graphscout/internal/frontier"
	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/identity"
	"github.com/graphscout/graphscout/internal/metrics"
	"github.com/graphscout/graphscout/internal/progress"
)

// Config bounds a traversal run.
type Config struct {
	// MaxDepth is the hop limit from the seed. Nodes at MaxDepth are
	// fetched and recorded but their friends are not enqueued.
	MaxDepth int
	// MaxProfiles caps the total nodes processed in a run. Zero means
	// unlimited.
	MaxProfiles int
	// MaxFriends caps the friends collected per profile. Zero means
	// unlimited.
	MaxFriends int
	// MaxFriendPages caps content loads while paging one friends list.
	MaxFriendPages int
	// StallLimit is the number of consecutive loads yielding no new
	// friends before pagination stops.
	StallLimit int
	// MaxPostPages caps content loads while paging one timeline.
	MaxPostPages int
}

const (
	defaultMaxDepth       = 1
	defaultMaxFriends     = 50
	defaultMaxFriendPages = 20
	defaultStallLimit     = 3
	defaultMaxPostPages   = 5
)

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.MaxFriendPages <= 0 {
		c.MaxFriendPages = defaultMaxFriendPages
	}
	if c.StallLimit <= 0 {
		c.StallLimit = defaultStallLimit
	}
	if c.MaxPostPages <= 0 {
		c.MaxPostPages = defaultMaxPostPages
	}
	return c
}

// Deps are the engine's collaborators. Source and Store are required; the
// rest default to no-ops.
type Deps struct {
	Source      graph.PageDataSource
	Store       graph.RecordStore
	Cache       *cache.Collection
	Checkpoints *checkpoint.Writer
	Emitter     progress.Emitter
	Limiter     *rate.Limiter
	Logger      *zap.Logger
}

// Engine drives collection against one page data source. It processes one
// node at a time: a single browser session cannot serve concurrent fetches,
// and pacing matters more than throughput here.
type Engine struct {
	cfg      Config
	source   graph.PageDataSource
	store    graph.RecordStore
	cache    *cache.Collection
	frontier *frontier.Frontier
	ckpt     *checkpoint.Writer
	emitter  progress.Emitter
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New builds an Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("traverse: page data source is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("traverse: record store is required")
	}
	if deps.Cache == nil {
		deps.Cache = cache.New("")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	metrics.Init()

	return &Engine{
		cfg:      cfg.withDefaults(),
		source:   deps.Source,
		store:    deps.Store,
		cache:    deps.Cache,
		frontier: frontier.New(),
		ckpt:     deps.Checkpoints,
		emitter:  deps.Emitter,
		limiter:  deps.Limiter,
		logger:   deps.Logger,
	}, nil
}

// ExtractProfile fetches and persists a single profile, plus up to maxPosts
// visible timeline posts when maxPosts is positive.
func (e *Engine) ExtractProfile(ctx context.Context, raw string, maxPosts int) (graph.ProfileResult, []graph.PostRecord, error) {
	ref, err := identity.Normalize(raw)
	if err != nil {
		return graph.ProfileResult{}, nil, err
	}
	if err := e.pace(ctx); err != nil {
		return graph.ProfileResult{}, nil, err
	}

	res, err := e.source.FetchProfile(ctx, ref.URL)
	if err != nil {
		return res, nil, fmt.Errorf("fetch profile %s: %w", ref.ID, err)
	}
	if res.Kind != graph.OutcomeOK {
		e.logger.Info("profile not extractable",
			zap.String("profile_id", ref.ID),
			zap.String("outcome", res.Kind.String()),
		)
		return res, nil, nil
	}

	if err := e.store.PutProfile(ctx, res.Profile); err != nil {
		return res, nil, fmt.Errorf("persist profile %s: %w", ref.ID, err)
	}
	e.logger.Info("profile extracted",
		zap.String("profile_id", ref.ID),
		zap.String("name", res.Profile.DisplayName),
	)

	if maxPosts <= 0 {
		return res, nil, nil
	}
	posts, err := e.collectPosts(ctx, ref, maxPosts)
	if err != nil {
		return res, posts, err
	}
	if len(posts) > 0 {
		if err := e.store.PutPosts(ctx, ref.ID, posts); err != nil {
			return res, posts, fmt.Errorf("persist posts for %s: %w", ref.ID, err)
		}
	}
	return res, posts, nil
}

func (e *Engine) collectPosts(ctx context.Context, ref identity.Reference, maxPosts int) ([]graph.PostRecord, error) {
	var (
		posts  []graph.PostRecord
		cursor graph.FriendCursor
		stall  int
	)
	seen := make(map[string]struct{})
	for attempts := 0; attempts < e.cfg.MaxPostPages && len(posts) < maxPosts; attempts++ {
		page, err := e.source.FetchPostsPage(ctx, ref.URL, cursor)
		if err != nil {
			if errors.Is(err, graph.ErrSessionLost) {
				return posts, err
			}
			e.logger.Warn("posts page fetch failed", zap.String("profile_id", ref.ID), zap.Error(err))
			return posts, nil
		}
		if page.Kind != graph.OutcomeOK {
			return posts, nil
		}

		added := 0
		for _, post := range page.Posts {
			if _, dup := seen[post.ID]; dup {
				continue
			}
			seen[post.ID] = struct{}{}
			posts = append(posts, post)
			added++
		}
		if added == 0 {
			stall++
		} else {
			stall = 0
		}

		cursor = page.Cursor
		if page.Done || stall >= e.cfg.StallLimit {
			break
		}
	}
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	return posts, nil
}

// CollectFriends collects one profile's visible friends, persists the friend
// list and a friendship edge per friend, and returns the friends with the
// outcome of the collection.
func (e *Engine) CollectFriends(ctx context.Context, raw string, maxFriends int) ([]graph.Friend, graph.OutcomeKind, error) {
	ref, err := identity.Normalize(raw)
	if err != nil {
		return nil, graph.OutcomeTransientError, err
	}

	friends, kind, err := e.collectFriends(ctx, ref, maxFriends)
	if err != nil || kind != graph.OutcomeOK {
		return friends, kind, err
	}

	if err := e.store.PutFriends(ctx, ref.ID, friends); err != nil {
		return friends, kind, fmt.Errorf("persist friends for %s: %w", ref.ID, err)
	}
	if _, err := e.persistEdges(ctx, ref.ID, friends); err != nil {
		return friends, kind, err
	}
	return friends, kind, nil
}

// collectFriends pages through the friends list until the source reports the
// end, the per-profile cap is reached, the stall detector fires, or the page
// load budget runs out. Results are memoized for the rest of the run.
func (e *Engine) collectFriends(ctx context.Context, ref identity.Reference, maxFriends int) ([]graph.Friend, graph.OutcomeKind, error) {
	if e.cache.IsRestricted(ref.ID) {
		return nil, graph.OutcomeRestricted, nil
	}
	if cached, ok := e.cache.GetFriends(ref.ID); ok {
		return capFriends(cached, maxFriends), graph.OutcomeOK, nil
	}

	var (
		friends []graph.Friend
		cursor  graph.FriendCursor
		stall   int
	)
	// Dedup and stall accounting belong to the engine: sources are free to
	// return overlapping pages, and a page counts as a stall only when it
	// contributes zero ids not seen before in this call.
	seen := make(map[string]struct{})
	for attempts := 0; attempts < e.cfg.MaxFriendPages; attempts++ {
		if err := e.pace(ctx); err != nil {
			return friends, graph.OutcomeTransientError, err
		}

		page, err := e.source.FetchFriendsPage(ctx, ref.URL, cursor)
		if err != nil {
			if errors.Is(err, graph.ErrSessionLost) {
				return friends, graph.OutcomeTransientError, err
			}
			e.logger.Warn("friends page fetch failed",
				zap.String("profile_id", ref.ID),
				zap.Error(err),
			)
			return friends, graph.OutcomeTransientError, nil
		}

		switch page.Kind {
		case graph.OutcomeRestricted:
			e.cache.MarkRestricted(ref.ID)
			return nil, graph.OutcomeRestricted, nil
		case graph.OutcomeNotFound:
			return nil, graph.OutcomeNotFound, nil
		case graph.OutcomeTransientError:
			return friends, graph.OutcomeTransientError, nil
		}

		added := 0
		for _, friend := range page.Friends {
			if _, dup := seen[friend.ID]; dup {
				continue
			}
			seen[friend.ID] = struct{}{}
			friends = append(friends, friend)
			added++
		}
		if added == 0 {
			stall++
		} else {
			stall = 0
		}

		if maxFriends > 0 && len(friends) >= maxFriends {
			friends = friends[:maxFriends]
			break
		}
		if page.Done {
			break
		}
		if stall >= e.cfg.StallLimit {
			metrics.ObserveStallStop()
			e.logger.Debug("friend pagination stalled",
				zap.String("profile_id", ref.ID),
				zap.Int("collected", len(friends)),
			)
			break
		}
		cursor = page.Cursor
	}

	e.cache.PutFriends(ref.ID, friends)
	return friends, graph.OutcomeOK, nil
}

func (e *Engine) persistEdges(ctx context.Context, sourceID string, friends []graph.Friend) (int, error) {
	now := time.Now().UTC()
	for i, friend := range friends {
		edge := graph.FriendshipEdge{
			SourceID:           sourceID,
			TargetID:           friend.ID,
			MutualFriendsCount: friend.MutualFriendsCount,
			CollectedAt:        now,
		}
		if err := e.store.PutEdge(ctx, edge); err != nil {
			return i, fmt.Errorf("persist edge %s: %w", edge.Key(), err)
		}
	}
	metrics.ObserveEdges(len(friends))
	return len(friends), nil
}

func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}
	return nil
}

func capFriends(friends []graph.Friend, max int) []graph.Friend {
	if max > 0 && len(friends) > max {
		return friends[:max]
	}
	return friends
}

// Package headless implements the browser-backed page data source. Profile
// pages render their content with JavaScript, so every fetch goes through a
// real Chrome tab driven over the DevTools protocol.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/identity"
	"github.com/graphscout/graphscout/internal/metrics"
	"github.com/graphscout/graphscout/internal/source/selectors"
)

// Config controls the behavior of the browser session.
type Config struct {
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// NavigationTimeout bounds a single navigation plus render wait.
	NavigationTimeout time.Duration
	// ScrollPause is how long to wait after a scroll for lazy content.
	ScrollPause time.Duration
	// MaxScrolls caps content loads per paginated list. Zero means the
	// default of 20.
	MaxScrolls int
	// CollectAbout also visits the about tab during profile fetches to
	// pick up work, education, and location sections.
	CollectAbout bool
}

const (
	defaultNavTimeout  = 45 * time.Second
	defaultScrollPause = 2 * time.Second
	defaultMaxScrolls  = 20
)

// Archiver persists raw rendered pages for later inspection.
type Archiver interface {
	SavePage(ctx context.Context, pageURL string, html []byte) error
}

// Session is a browser-backed graph.PageDataSource. It owns a single tab and
// is not safe for concurrent use; the traversal engine is sequential by
// construction, so one tab is all it ever needs.
type Session struct {
	cfg         Config
	logger      *zap.Logger
	archiver    Archiver
	allocator   context.Context
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	currentURL  string
}

// SetArchiver installs a snapshot archiver. Every captured page is handed to
// it best effort; archive failures are logged, never surfaced.
func (s *Session) SetArchiver(a Archiver) {
	s.archiver = a
}

// New launches headless Chrome and opens the session tab.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = defaultScrollPause
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = defaultMaxScrolls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		tab:         tabCtx,
		tabCancel:   tabCancel,
	}
	if err := s.run(context.Background(), s.setupAction()); err != nil {
		allocCancel()
		return nil, fmt.Errorf("start browser session: %w", err)
	}
	return s, nil
}

// Close shuts down the tab and the browser process.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// FetchProfile navigates to the profile page and extracts its attributes.
func (s *Session) FetchProfile(ctx context.Context, canonicalURL string) (graph.ProfileResult, error) {
	ref, err := identity.Normalize(canonicalURL)
	if err != nil {
		return graph.ProfileResult{Kind: graph.OutcomeTransientError, Err: err}, err
	}

	start := time.Now()
	doc, err := s.load(ctx, ref.URL)
	if err != nil {
		metrics.ObserveFetchFailure("profile")
		return graph.ProfileResult{Kind: graph.OutcomeTransientError, Err: err}, err
	}
	metrics.ObserveFetchDuration("profile", time.Since(start))

	if selectors.ProfileMissing(doc) {
		return graph.ProfileResult{Kind: graph.OutcomeNotFound}, nil
	}

	rec := selectors.Profile(doc)
	if rec.DisplayName == "" {
		// A rendered page with no readable name is a locked profile.
		metrics.ObserveRestricted()
		return graph.ProfileResult{Kind: graph.OutcomeRestricted}, nil
	}

	rec.ID = ref.ID
	rec.ProfileURL = ref.URL
	rec.CollectedAt = time.Now().UTC()
	if !identity.IsNumericID(ref) {
		rec.Username = ref.ID
	}

	if s.cfg.CollectAbout && len(rec.Work) == 0 && len(rec.Education) == 0 {
		s.mergeAbout(ctx, ref, &rec)
	}

	return graph.ProfileResult{Kind: graph.OutcomeOK, Profile: rec}, nil
}

// mergeAbout best-effort fills work, education, and places from the about
// tab. Failures here never fail the profile fetch.
func (s *Session) mergeAbout(ctx context.Context, ref identity.Reference, rec *graph.ProfileRecord) {
	doc, err := s.load(ctx, identity.AboutURL(ref))
	if err != nil {
		s.logger.Debug("about tab fetch failed", zap.String("profile_id", ref.ID), zap.Error(err))
		return
	}
	about := selectors.Profile(doc)
	rec.Work = about.Work
	rec.Education = about.Education
	if about.CurrentCity != "" {
		rec.CurrentCity = about.CurrentCity
	}
	if about.Hometown != "" {
		rec.Hometown = about.Hometown
	}
	if rec.Location == "" {
		rec.Location = rec.CurrentCity
	}
}

// FetchFriendsPage returns the next batch of friends. A nil cursor starts a
// fresh pagination at the friends page; a returned cursor continues it by
// scrolling the already-loaded tab.
func (s *Session) FetchFriendsPage(ctx context.Context, canonicalURL string, cursor graph.FriendCursor) (graph.FriendsPage, error) {
	ref, err := identity.Normalize(canonicalURL)
	if err != nil {
		return graph.FriendsPage{Kind: graph.OutcomeTransientError, Err: err}, err
	}
	friendsURL := identity.FriendsURL(ref)

	cur, fresh := s.resumeCursor(cursor, friendsURL)

	start := time.Now()
	var page *renderedPage
	if fresh {
		page, err = s.loadDoc(ctx, friendsURL)
	} else {
		page, err = s.scrollAndCapture(ctx)
	}
	if err != nil {
		metrics.ObserveFetchFailure("friends")
		return graph.FriendsPage{Kind: graph.OutcomeTransientError, Err: err}, err
	}
	metrics.ObserveFetchDuration("friends", time.Since(start))
	cur.attempt++

	if fresh {
		if selectors.ProfileMissing(page.doc) {
			return graph.FriendsPage{Kind: graph.OutcomeNotFound, Done: true}, nil
		}
		if selectors.FriendsRestricted(page.doc) {
			metrics.ObserveRestricted()
			return graph.FriendsPage{Kind: graph.OutcomeRestricted, Done: true}, nil
		}
	}

	friends := newFriends(selectors.FriendTiles(page.doc), cur.seen)
	return graph.FriendsPage{
		Kind:    graph.OutcomeOK,
		Friends: friends,
		Cursor:  cur,
		Done:    cur.attempt >= s.cfg.MaxScrolls,
	}, nil
}

// FetchPostsPage returns the next batch of timeline posts, paging by
// scrolling the profile page itself.
func (s *Session) FetchPostsPage(ctx context.Context, canonicalURL string, cursor graph.FriendCursor) (graph.PostsPage, error) {
	ref, err := identity.Normalize(canonicalURL)
	if err != nil {
		return graph.PostsPage{Kind: graph.OutcomeTransientError, Err: err}, err
	}

	cur, fresh := s.resumeCursor(cursor, ref.URL)

	start := time.Now()
	var page *renderedPage
	if fresh {
		page, err = s.loadDoc(ctx, ref.URL)
	} else {
		page, err = s.scrollAndCapture(ctx)
	}
	if err != nil {
		metrics.ObserveFetchFailure("posts")
		return graph.PostsPage{Kind: graph.OutcomeTransientError, Err: err}, err
	}
	metrics.ObserveFetchDuration("posts", time.Since(start))
	cur.attempt++

	if fresh && selectors.ProfileMissing(page.doc) {
		return graph.PostsPage{Kind: graph.OutcomeNotFound, Done: true}, nil
	}

	var posts []graph.PostRecord
	for _, post := range selectors.Posts(page.doc, ref.ID, time.Now().UTC()) {
		if _, dup := cur.seen[post.ID]; dup {
			continue
		}
		cur.seen[post.ID] = struct{}{}
		posts = append(posts, post)
	}

	return graph.PostsPage{
		Kind:   graph.OutcomeOK,
		Posts:  posts,
		Cursor: cur,
		Done:   cur.attempt >= s.cfg.MaxScrolls,
	}, nil
}

// resumeCursor returns the scroll cursor for the given page URL, starting a
// new one when the cursor is absent or belongs to a different page.
func (s *Session) resumeCursor(cursor graph.FriendCursor, pageURL string) (*scrollCursor, bool) {
	if cur, ok := cursor.(*scrollCursor); ok && cur.url == pageURL && s.currentURL == pageURL {
		return cur, false
	}
	return &scrollCursor{url: pageURL, seen: make(map[string]struct{})}, true
}

// scrollCursor tracks pagination state for one list page.
type scrollCursor struct {
	url     string
	attempt int
	seen    map[string]struct{}
}

// Attempt reports how many content loads this cursor has performed.
func (c *scrollCursor) Attempt() int { return c.attempt }

// newFriends converts unseen tiles to friends, canonicalizing each link and
// dropping tiles that do not reference a recognizable profile.
func newFriends(tiles []selectors.FriendTile, seen map[string]struct{}) []graph.Friend {
	var friends []graph.Friend
	for _, tile := range tiles {
		ref, err := identity.Normalize(tile.Href)
		if err != nil {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		friends = append(friends, graph.Friend{
			ID:                 ref.ID,
			DisplayName:        tile.Name,
			ProfileURL:         ref.URL,
			PictureURL:         tile.PictureURL,
			MutualFriendsCount: tile.MutualFriends,
		})
	}
	return friends
}

// renderedPage pairs a parsed document with the raw HTML it came from. The
// HTML is kept so a snapshot archiver can persist exactly what was parsed.
type renderedPage struct {
	doc  *goquery.Document
	html string
}

func (s *Session) load(ctx context.Context, pageURL string) (*goquery.Document, error) {
	page, err := s.loadDoc(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return page.doc, nil
}

func (s *Session) loadDoc(ctx context.Context, pageURL string) (*renderedPage, error) {
	var html string
	err := s.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	s.currentURL = pageURL
	s.archive(ctx, pageURL, html)

	doc, err := selectors.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &renderedPage{doc: doc, html: html}, nil
}

// scrollAndCapture scrolls the current tab to the bottom, waits for lazy
// content, and re-captures the DOM.
func (s *Session) scrollAndCapture(ctx context.Context) (*renderedPage, error) {
	var html string
	err := s.run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(s.cfg.ScrollPause),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, s.currentURL, html)

	doc, err := selectors.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &renderedPage{doc: doc, html: html}, nil
}

func (s *Session) archive(ctx context.Context, pageURL, html string) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.SavePage(ctx, pageURL, []byte(html)); err != nil {
		s.logger.Debug("page snapshot failed", zap.String("url", pageURL), zap.Error(err))
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, s.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return s.classify(ctx, err)
	}
	return nil
}

// classify maps a chromedp failure onto session-lost or a plain error. A
// dead tab means the whole browser session is unusable.
func (s *Session) classify(ctx context.Context, err error) error {
	if s.tab.Err() != nil {
		return fmt.Errorf("%w: %v", graph.ErrSessionLost, err)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", graph.ErrSessionLost, err)
	}
	return fmt.Errorf("chromedp run: %w", err)
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

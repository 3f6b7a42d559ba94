// Package feed holds the home post listing: paging, sort and listing
// selection, votes and saves.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/observe"
)

// API is the slice of the Lemmy client the feed needs.
type API interface {
	GetPosts(ctx context.Context, s lemmy.Session, form lemmy.GetPosts) ([]lemmy.PostView, error)
	LikePost(ctx context.Context, s lemmy.Session, postID, score int) (lemmy.PostView, error)
	SavePost(ctx context.Context, s lemmy.Session, postID int, save bool) (lemmy.PostView, error)
}

// State is an immutable snapshot of the listing.
type State struct {
	Posts       []lemmy.PostView
	Loading     bool
	Page        int
	SortType    lemmy.SortType
	ListingType lemmy.ListingType
	Err         error
	Version     uint64
}

// FullScreenLoading is the list-level loading flag: in flight, on page 1,
// with posts already shown.
func (s State) FullScreenLoading() bool {
	return s.Loading && s.Page == 1 && len(s.Posts) > 0
}

// Options control one fetch. Clear wins over NextPage.
type Options struct {
	Clear       bool
	NextPage    bool
	SortType    *lemmy.SortType
	ListingType *lemmy.ListingType
}

// Feed is the post listing state container. Each fetch supersedes the
// previous one: the older request is cancelled and its result dropped.
type Feed struct {
	api      API
	log      *slog.Logger
	pageSize int

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	hub    *observe.Hub[State]
}

func New(api API, sort lemmy.SortType, listing lemmy.ListingType, pageSize int, log *slog.Logger) *Feed {
	return &Feed{
		api:      api,
		log:      log,
		pageSize: pageSize,
		state:    State{Page: 1, SortType: sort, ListingType: listing},
		hub:      observe.NewHub[State](),
	}
}

// State returns the latest snapshot.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe delivers a snapshot after every change.
func (f *Feed) Subscribe(buffer int) (<-chan State, func()) {
	return f.hub.Subscribe(buffer)
}

// Fetch loads a page for session s. A clear fetch resets to page 1 and
// replaces the list; otherwise the page is appended.
func (f *Feed) Fetch(ctx context.Context, s lemmy.Session, opts Options) error {
	f.mu.Lock()
	prevPage := f.state.Page
	if opts.NextPage {
		f.state.Page++
	}
	if opts.Clear {
		f.state.Page = 1
	}
	if opts.SortType != nil {
		f.state.SortType = *opts.SortType
	}
	if opts.ListingType != nil {
		f.state.ListingType = *opts.ListingType
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	form := lemmy.GetPosts{
		Sort:  f.state.SortType,
		Type:  f.state.ListingType,
		Page:  f.state.Page,
		Limit: f.pageSize,
	}
	f.state.Loading = true
	f.state.Err = nil
	f.publishLocked()
	f.mu.Unlock()

	f.log.DebugContext(ctx, "Fetching posts",
		"instance", s.Instance,
		"anonymous", s.Anonymous(),
		"page", form.Page,
		"sort", form.Sort,
		"listing", form.Type,
		"generation", gen)

	posts, err := f.api.GetPosts(fetchCtx, s, form)

	f.mu.Lock()
	defer f.mu.Unlock()
	cancel()
	if gen != f.gen {
		f.log.DebugContext(ctx, "Dropping superseded posts response",
			"generation", gen,
			"latest", f.gen)
		return nil
	}
	f.cancel = nil
	f.state.Loading = false
	if err != nil {
		if opts.NextPage && !opts.Clear {
			f.state.Page = prevPage
		}
		f.state.Err = err
		f.publishLocked()
		f.log.WarnContext(ctx, "Failed to fetch posts",
			"error", err,
			"instance", s.Instance,
			"page", form.Page)
		return err
	}
	if opts.Clear {
		f.state.Posts = posts
	} else {
		merged := make([]lemmy.PostView, 0, len(f.state.Posts)+len(posts))
		merged = append(merged, f.state.Posts...)
		merged = append(merged, posts...)
		f.state.Posts = merged
	}
	f.publishLocked()
	return nil
}

// LoadMore fetches the next page. It does nothing while a fetch is in
// flight or before any post has been loaded.
func (f *Feed) LoadMore(ctx context.Context, s lemmy.Session) (bool, error) {
	f.mu.Lock()
	st := f.state
	f.mu.Unlock()
	if st.Loading || len(st.Posts) == 0 {
		return false, nil
	}
	return true, f.Fetch(ctx, s, Options{NextPage: true})
}

// Like votes on post and swaps in the server's updated view.
func (f *Feed) Like(ctx context.Context, s lemmy.Session, vote lemmy.VoteType, post lemmy.PostView) error {
	score := lemmy.NewVote(post.MyVote, vote)
	pv, err := f.api.LikePost(ctx, s, post.Post.ID, score)
	if err != nil {
		return f.fail(ctx, "like", post, err)
	}
	f.replace(pv)
	return nil
}

// Save toggles the saved flag of post.
func (f *Feed) Save(ctx context.Context, s lemmy.Session, post lemmy.PostView) error {
	pv, err := f.api.SavePost(ctx, s, post.Post.ID, !post.Saved)
	if err != nil {
		return f.fail(ctx, "save", post, err)
	}
	f.replace(pv)
	return nil
}

// Find returns the listed post with id.
func (f *Feed) Find(id int) (lemmy.PostView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.state.Posts {
		if p.Post.ID == id {
			return p, true
		}
	}
	return lemmy.PostView{}, false
}

func (f *Feed) replace(pv lemmy.PostView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := make([]lemmy.PostView, len(f.state.Posts))
	copy(posts, f.state.Posts)
	for i := range posts {
		if posts[i].Post.ID == pv.Post.ID {
			posts[i] = pv
		}
	}
	f.state.Posts = posts
	f.publishLocked()
}

func (f *Feed) fail(ctx context.Context, op string, post lemmy.PostView, err error) error {
	if !errors.Is(err, lemmy.ErrNotLoggedIn) {
		f.log.WarnContext(ctx, "Post action failed",
			"op", op,
			"postID", post.Post.ID,
			"error", err)
	}
	return fmt.Errorf("%s post: %w", op, err)
}

func (f *Feed) publishLocked() {
	f.state.Version++
	f.hub.Publish(f.state)
}

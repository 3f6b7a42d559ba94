// Package home turns home screen intents into ordered calls on the account
// store, the post feed and the site info, and owns the active session.
package home

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/feed"
	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/observe"
)

// AccountStore is the part of account.Store the orchestrator drives.
type AccountStore interface {
	Load(ctx context.Context) (account.Snapshot, error)
	Snapshot() account.Snapshot
	Switch(ctx context.Context, id string) (account.Account, error)
	SignOut(ctx context.Context) (account.Account, bool, error)
}

type Feed interface {
	Fetch(ctx context.Context, s lemmy.Session, opts feed.Options) error
	LoadMore(ctx context.Context, s lemmy.Session) (bool, error)
	Like(ctx context.Context, s lemmy.Session, vote lemmy.VoteType, post lemmy.PostView) error
	Save(ctx context.Context, s lemmy.Session, post lemmy.PostView) error
	State() feed.State
}

type Site interface {
	Fetch(ctx context.Context, s lemmy.Session) (*lemmy.GetSiteResponse, error)
}

// Navigator moves between screens and hands links to the system.
type Navigator interface {
	Navigate(route string)
	OpenLink(url string) error
}

// SelectionSaver remembers the anonymous feed selection.
type SelectionSaver func(sort lemmy.SortType, listing lemmy.ListingType) error

type Options struct {
	DefaultInstance string
	SaveSelection   SelectionSaver
}

type Home struct {
	accounts AccountStore
	feed     Feed
	site     Site
	nav      Navigator
	opts     Options
	log      *slog.Logger

	// switchMu serializes the session changing sequences.
	switchMu sync.Mutex

	mu      sync.Mutex
	session lemmy.Session
	hub     *observe.Hub[lemmy.Session]
}

func New(accounts AccountStore, f Feed, site Site, nav Navigator, opts Options, log *slog.Logger) *Home {
	return &Home{
		accounts: accounts,
		feed:     f,
		site:     site,
		nav:      nav,
		opts:     opts,
		log:      log,
		session:  lemmy.Session{Instance: opts.DefaultInstance},
		hub:      observe.NewHub[lemmy.Session](),
	}
}

// Start reads the stored accounts and builds the session from the current
// one. Nothing is fetched.
func (h *Home) Start(ctx context.Context) (lemmy.Session, error) {
	snap, err := h.accounts.Load(ctx)
	if err != nil {
		return h.Session(), fmt.Errorf("load accounts: %w", err)
	}
	s := h.sessionFor(snap)
	h.setSession(s)
	h.log.InfoContext(ctx, "Home started",
		"instance", s.Instance,
		"anonymous", s.Anonymous(),
		"accounts", len(snap.Accounts))
	return s, nil
}

// Session returns the active session.
func (h *Home) Session() lemmy.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Subscribe delivers the session after every change.
func (h *Home) Subscribe(buffer int) (<-chan lemmy.Session, func()) {
	return h.hub.Subscribe(buffer)
}

// Dispatch runs one intent to completion.
func (h *Home) Dispatch(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case ChangeSortType:
		sort := in.Sort
		if err := h.feed.Fetch(ctx, h.Session(), feed.Options{Clear: true, SortType: &sort}); err != nil {
			return err
		}
		h.rememberSelection(ctx)
		return nil
	case ChangeListingType:
		listing := in.Listing
		if err := h.feed.Fetch(ctx, h.Session(), feed.Options{Clear: true, ListingType: &listing}); err != nil {
			return err
		}
		h.rememberSelection(ctx)
		return nil
	case SwitchAccount:
		return h.switchAccount(ctx, in.ID)
	case SignOut:
		return h.signOut(ctx)
	case Upvote:
		return h.feed.Like(ctx, h.Session(), lemmy.Upvote, in.Post)
	case Downvote:
		return h.feed.Like(ctx, h.Session(), lemmy.Downvote, in.Post)
	case SavePost:
		return h.feed.Save(ctx, h.Session(), in.Post)
	case OpenPost:
		h.nav.Navigate(PostRoute(in.Post.Post.ID))
		return nil
	case OpenLink:
		if err := h.nav.OpenLink(in.URL); err != nil {
			return fmt.Errorf("open link: %w", err)
		}
		return nil
	case Refresh:
		return h.feed.Fetch(ctx, h.Session(), feed.Options{Clear: true})
	case LoadMore:
		_, err := h.feed.LoadMore(ctx, h.Session())
		return err
	default:
		return fmt.Errorf("unknown intent %T", in)
	}
}

// PostRoute is the navigation route of the post screen.
func PostRoute(id int) string {
	return fmt.Sprintf("post/%d?fetch=true", id)
}

// switchAccount moves the current flag, retargets the session and fetches
// the site info as the chosen account. A failed site fetch leaves the new
// session in place.
func (h *Home) switchAccount(ctx context.Context, id string) error {
	h.switchMu.Lock()
	defer h.switchMu.Unlock()

	chosen, err := h.accounts.Switch(ctx, id)
	if err != nil {
		return err
	}
	s := lemmy.Session{Instance: chosen.Instance, Auth: chosen.JWT}
	h.setSession(s)
	h.log.InfoContext(ctx, "Switched account",
		"account", account.Label(chosen))

	if _, err := h.site.Fetch(ctx, s); err != nil {
		return fmt.Errorf("switch to %s: %w", account.Label(chosen), err)
	}
	return nil
}

func (h *Home) signOut(ctx context.Context) error {
	h.switchMu.Lock()
	defer h.switchMu.Unlock()

	removed, ok, err := h.accounts.SignOut(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s := h.sessionFor(h.accounts.Snapshot())
	h.setSession(s)
	h.log.InfoContext(ctx, "Signed out",
		"account", account.Label(removed),
		"instance", s.Instance,
		"anonymous", s.Anonymous())

	if _, err := h.site.Fetch(ctx, s); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (h *Home) sessionFor(snap account.Snapshot) lemmy.Session {
	if cur, ok := snap.Current(); ok {
		return lemmy.Session{Instance: cur.Instance, Auth: cur.JWT}
	}
	return lemmy.Session{Instance: h.opts.DefaultInstance}
}

func (h *Home) setSession(s lemmy.Session) {
	h.mu.Lock()
	h.session = s
	h.hub.Publish(s)
	h.mu.Unlock()
}

func (h *Home) rememberSelection(ctx context.Context) {
	if h.opts.SaveSelection == nil || !h.Session().Anonymous() {
		return
	}
	st := h.feed.State()
	if err := h.opts.SaveSelection(st.SortType, st.ListingType); err != nil {
		h.log.WarnContext(ctx, "Failed to save feed selection",
			"error", err)
	}
}

package home

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/database/repository"
	"github.com/leslieriver/jerboa/internal/feed"
	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/testdata"
)

// recorder collects the calls of all fakes in one ordered log.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingStore struct {
	*account.Store
	rec *recorder
}

func (s recordingStore) Switch(ctx context.Context, id string) (account.Account, error) {
	a, err := s.Store.Switch(ctx, id)
	s.rec.add("store.switch:" + a.Name)
	return a, err
}

type fakeFeed struct {
	rec   *recorder
	mu    sync.Mutex
	fetch []fetchCall
	likes []lemmy.VoteType
	saves []int
	state feed.State
	err   error
}

type fetchCall struct {
	session lemmy.Session
	opts    feed.Options
}

func (f *fakeFeed) Fetch(_ context.Context, s lemmy.Session, opts feed.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetch = append(f.fetch, fetchCall{session: s, opts: opts})
	if opts.SortType != nil {
		f.state.SortType = *opts.SortType
	}
	if opts.ListingType != nil {
		f.state.ListingType = *opts.ListingType
	}
	return f.err
}

func (f *fakeFeed) LoadMore(_ context.Context, s lemmy.Session) (bool, error) {
	f.rec.add("feed.loadmore:" + s.Instance)
	return true, nil
}

func (f *fakeFeed) Like(_ context.Context, s lemmy.Session, vote lemmy.VoteType, post lemmy.PostView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes = append(f.likes, vote)
	f.rec.add("feed.like:" + s.Auth)
	return nil
}

func (f *fakeFeed) Save(_ context.Context, s lemmy.Session, post lemmy.PostView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, post.Post.ID)
	return nil
}

func (f *fakeFeed) State() feed.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeSite struct {
	rec  *recorder
	home *Home
	err  error
}

func (s *fakeSite) Fetch(_ context.Context, sess lemmy.Session) (*lemmy.GetSiteResponse, error) {
	cur := s.home.Session()
	s.rec.add("site.fetch:" + sess.Auth + "@" + sess.Instance + " session=" + cur.Instance)
	if s.err != nil {
		return nil, s.err
	}
	return &lemmy.GetSiteResponse{}, nil
}

type fakeNav struct {
	routes []string
	links  []string
	err    error
}

func (n *fakeNav) Navigate(route string) { n.routes = append(n.routes, route) }

func (n *fakeNav) OpenLink(url string) error {
	n.links = append(n.links, url)
	return n.err
}

type fixture struct {
	home  *Home
	store *account.Store
	repo  *repository.AccountRepo
	feed  *fakeFeed
	site  *fakeSite
	nav   *fakeNav
	rec   *recorder
	saved []prefsCall
}

type prefsCall struct {
	sort    lemmy.SortType
	listing lemmy.ListingType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &recorder{}
	repo := repository.NewAccountRepo(testdata.OpenDB(t), nil)
	store := account.NewStore(repo, testdata.Logger())
	fx := &fixture{
		store: store,
		repo:  repo,
		feed:  &fakeFeed{rec: rec},
		site:  &fakeSite{rec: rec},
		nav:   &fakeNav{},
		rec:   rec,
	}
	opts := Options{
		DefaultInstance: "lemmy.ml",
		SaveSelection: func(sort lemmy.SortType, listing lemmy.ListingType) error {
			fx.saved = append(fx.saved, prefsCall{sort: sort, listing: listing})
			return nil
		},
	}
	fx.home = New(recordingStore{Store: store, rec: rec}, fx.feed, fx.site, fx.nav, opts, testdata.Logger())
	fx.site.home = fx.home
	return fx
}

func (fx *fixture) seed(t *testing.T, current int, accts ...repository.Account) []repository.Account {
	t.Helper()
	out := testdata.Seed(context.Background(), t, fx.repo, current, accts...)
	_, err := fx.home.Start(context.Background())
	require.NoError(t, err)
	return out
}

func TestStartBuildsSessionWithoutFetching(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	s, err := fx.home.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, lemmy.Session{Instance: "lemmy.ml"}, s)

	fx.seed(t, 1,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
	)
	s = fx.home.Session()
	require.Equal(t, "beehaw.org", s.Instance)
	require.Equal(t, "jwt-bob@beehaw.org", s.Auth)

	require.Empty(t, fx.feed.fetch)
	require.Empty(t, fx.rec.list())
}

func TestSwitchAccountOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	accts := fx.seed(t, 0,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
	)

	require.NoError(t, fx.home.Dispatch(context.Background(), SwitchAccount{ID: accts[1].ID}))

	require.Equal(t, []string{
		"store.switch:bob",
		"site.fetch:jwt-bob@beehaw.org@beehaw.org session=beehaw.org",
	}, fx.rec.list())

	cur, ok := fx.store.Snapshot().Current()
	require.True(t, ok)
	require.Equal(t, accts[1].ID, cur.ID)
	require.Equal(t, lemmy.Session{Instance: "beehaw.org", Auth: "jwt-bob@beehaw.org"}, fx.home.Session())

	// nothing after the switch uses the old account's token
	require.NoError(t, fx.home.Dispatch(context.Background(), Upvote{Post: lemmy.PostView{}}))
	require.Equal(t, "feed.like:jwt-bob@beehaw.org", fx.rec.list()[2])
}

func TestSwitchKeepsNewSessionWhenSiteFetchFails(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	accts := fx.seed(t, 0,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
	)
	fx.site.err = errors.New("unreachable")

	err := fx.home.Dispatch(context.Background(), SwitchAccount{ID: accts[1].ID})
	require.Error(t, err)

	cur, _ := fx.store.Snapshot().Current()
	require.Equal(t, accts[1].ID, cur.ID)
	require.Equal(t, "beehaw.org", fx.home.Session().Instance)
}

func TestSwitchUnknownAccountKeepsSession(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.seed(t, 0, testdata.NewAccount("amy", "lemmy.ml"))
	before := fx.home.Session()

	err := fx.home.Dispatch(context.Background(), SwitchAccount{ID: "missing"})
	require.ErrorIs(t, err, account.ErrNotFound)
	require.Equal(t, before, fx.home.Session())
	require.Len(t, fx.rec.list(), 1, "no site fetch after a failed switch")
}

func TestConcurrentSwitchesDoNotInterleave(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	accts := fx.seed(t, 0,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
		testdata.NewAccount("cat", "lemmy.world"),
	)

	var wg sync.WaitGroup
	for _, a := range accts[1:] {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			require.NoError(t, fx.home.Dispatch(context.Background(), SwitchAccount{ID: id}))
		}(a.ID)
	}
	wg.Wait()

	events := fx.rec.list()
	require.Len(t, events, 4)
	for i := 0; i < len(events); i += 2 {
		name := events[i][len("store.switch:"):]
		require.Contains(t, events[i+1], "site.fetch:jwt-"+name+"@")
	}
}

func TestSignOutScenario(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	accts := fx.seed(t, 0,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
	)

	require.NoError(t, fx.home.Dispatch(context.Background(), SignOut{}))

	snap := fx.store.Snapshot()
	require.Len(t, snap.Accounts, 1)
	require.Equal(t, accts[1].ID, snap.Accounts[0].ID)
	cur, ok := snap.Current()
	require.True(t, ok)
	require.Equal(t, accts[1].ID, cur.ID)
	require.Equal(t, lemmy.Session{Instance: "beehaw.org", Auth: "jwt-bob@beehaw.org"}, fx.home.Session())

	require.NoError(t, fx.home.Dispatch(context.Background(), SignOut{}))
	require.Empty(t, fx.store.Snapshot().Accounts)
	require.Equal(t, lemmy.Session{Instance: "lemmy.ml"}, fx.home.Session())

	// nothing left to sign out
	n := len(fx.rec.list())
	require.NoError(t, fx.home.Dispatch(context.Background(), SignOut{}))
	require.Len(t, fx.rec.list(), n)
}

func TestSortAndListingChangesClear(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.feed.state = feed.State{SortType: lemmy.SortActive, ListingType: lemmy.ListingLocal}
	_, err := fx.home.Start(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fx.home.Dispatch(ctx, ChangeSortType{Sort: lemmy.SortHot}))
	require.NoError(t, fx.home.Dispatch(ctx, ChangeListingType{Listing: lemmy.ListingAll}))
	require.NoError(t, fx.home.Dispatch(ctx, Refresh{}))

	calls := fx.feed.fetch
	require.Len(t, calls, 3)

	require.True(t, calls[0].opts.Clear)
	require.Equal(t, lemmy.SortHot, *calls[0].opts.SortType)
	require.Nil(t, calls[0].opts.ListingType)
	require.Empty(t, calls[0].session.Auth)

	require.True(t, calls[1].opts.Clear)
	require.Equal(t, lemmy.ListingAll, *calls[1].opts.ListingType)
	require.Nil(t, calls[1].opts.SortType)

	require.True(t, calls[2].opts.Clear)
	require.Nil(t, calls[2].opts.SortType)
	require.Nil(t, calls[2].opts.ListingType)
	require.False(t, calls[2].opts.NextPage)

	require.Equal(t, []prefsCall{
		{sort: lemmy.SortHot, listing: lemmy.ListingLocal},
		{sort: lemmy.SortHot, listing: lemmy.ListingAll},
	}, fx.saved)
}

func TestSelectionNotSavedWhenLoggedIn(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.seed(t, 0, testdata.NewAccount("amy", "lemmy.ml"))

	require.NoError(t, fx.home.Dispatch(context.Background(), ChangeSortType{Sort: lemmy.SortNew}))
	require.Equal(t, "jwt-amy@lemmy.ml", fx.feed.fetch[0].session.Auth)
	require.Empty(t, fx.saved)
}

func TestPostIntents(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.seed(t, 0, testdata.NewAccount("amy", "lemmy.ml"))
	ctx := context.Background()
	pv := lemmy.PostView{Post: lemmy.Post{ID: 42}}

	require.NoError(t, fx.home.Dispatch(ctx, Upvote{Post: pv}))
	require.NoError(t, fx.home.Dispatch(ctx, Downvote{Post: pv}))
	require.NoError(t, fx.home.Dispatch(ctx, SavePost{Post: pv}))
	require.NoError(t, fx.home.Dispatch(ctx, OpenPost{Post: pv}))
	require.NoError(t, fx.home.Dispatch(ctx, OpenLink{URL: "https://join-lemmy.org"}))
	require.NoError(t, fx.home.Dispatch(ctx, LoadMore{}))

	require.Equal(t, []lemmy.VoteType{lemmy.Upvote, lemmy.Downvote}, fx.feed.likes)
	require.Equal(t, []int{42}, fx.feed.saves)
	require.Equal(t, []string{"post/42?fetch=true"}, fx.nav.routes)
	require.Equal(t, []string{"https://join-lemmy.org"}, fx.nav.links)
	require.Contains(t, fx.rec.list(), "feed.loadmore:lemmy.ml")

	fx.nav.err = errors.New("no browser")
	require.Error(t, fx.home.Dispatch(ctx, OpenLink{URL: "https://x"}))
}

func TestSessionSubscription(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ch, cancel := fx.home.Subscribe(4)
	defer cancel()

	accts := fx.seed(t, 0,
		testdata.NewAccount("amy", "lemmy.ml"),
		testdata.NewAccount("bob", "beehaw.org"),
	)
	require.NoError(t, fx.home.Dispatch(context.Background(), SwitchAccount{ID: accts[1].ID}))

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case s := <-ch:
			got = append(got, s.Instance)
		case <-timeout:
			t.Fatal("timed out waiting for sessions")
		}
	}
	require.Equal(t, []string{"lemmy.ml", "beehaw.org"}, got)
}

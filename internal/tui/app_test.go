package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/feed"
	"github.com/leslieriver/jerboa/internal/home"
	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/observe"
	"github.com/leslieriver/jerboa/internal/site"
	"github.com/leslieriver/jerboa/internal/testdata"
)

type fakeHome struct {
	mu      sync.Mutex
	intents []home.Intent
	err     error
	session lemmy.Session
	hub     *observe.Hub[lemmy.Session]
}

func (h *fakeHome) Dispatch(_ context.Context, in home.Intent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.intents = append(h.intents, in)
	return h.err
}

func (h *fakeHome) Session() lemmy.Session { return h.session }

func (h *fakeHome) Subscribe(buffer int) (<-chan lemmy.Session, func()) {
	return h.hub.Subscribe(buffer)
}

func (h *fakeHome) last() home.Intent {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.intents) == 0 {
		return nil
	}
	return h.intents[len(h.intents)-1]
}

type fakeFeed struct{ hub *observe.Hub[feed.State] }

func (f fakeFeed) State() feed.State {
	return feed.State{Page: 1, SortType: lemmy.SortActive, ListingType: lemmy.ListingLocal}
}

func (f fakeFeed) Subscribe(buffer int) (<-chan feed.State, func()) { return f.hub.Subscribe(buffer) }

type fakeSite struct{ hub *observe.Hub[site.State] }

func (s fakeSite) State() site.State { return site.State{} }

func (s fakeSite) Subscribe(buffer int) (<-chan site.State, func()) { return s.hub.Subscribe(buffer) }

func (s fakeSite) Fetch(context.Context, lemmy.Session) (*lemmy.GetSiteResponse, error) {
	return &lemmy.GetSiteResponse{}, nil
}

type fakeAccounts struct {
	snap account.Snapshot
	hub  *observe.Hub[account.Snapshot]
}

func (f fakeAccounts) Snapshot() account.Snapshot { return f.snap }

func (f fakeAccounts) Subscribe(buffer int) (<-chan account.Snapshot, func()) {
	return f.hub.Subscribe(buffer)
}

func newTestApp(t *testing.T, accts ...account.Account) (*App, *fakeHome) {
	t.Helper()
	h := &fakeHome{session: lemmy.Session{Instance: "lemmy.ml"}, hub: observe.NewHub[lemmy.Session]()}
	app := New(context.Background(), Deps{
		Home:     h,
		Feed:     fakeFeed{hub: observe.NewHub[feed.State]()},
		Site:     fakeSite{hub: observe.NewHub[site.State]()},
		Accounts: fakeAccounts{snap: account.Snapshot{Accounts: accts}, hub: observe.NewHub[account.Snapshot]()},
		Router:   NewRouter(),
		Log:      testdata.Logger(),
	})
	t.Cleanup(app.Close)
	return app, h
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs the resulting command. Only use it for messages
// whose command does not wait on a subscription.
func press(t *testing.T, a *App, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := a.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func withPosts(a *App, posts ...lemmy.PostView) {
	a.Update(feedStateMsg(feed.State{Posts: posts, Page: 1, SortType: lemmy.SortActive, ListingType: lemmy.ListingLocal}))
}

func pv(id int, name string) lemmy.PostView {
	return lemmy.PostView{
		Post:      lemmy.Post{ID: id, Name: name},
		Community: lemmy.CommunitySafe{Title: "golang"},
	}
}

func TestSortPickerDispatchesChange(t *testing.T) {
	t.Parallel()

	a, h := newTestApp(t)
	press(t, a, runes("S"))
	require.Equal(t, pickerSort, a.picker)
	require.Contains(t, a.View(), "TopWeek")

	press(t, a, runes("j"))
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, home.ChangeSortType{Sort: lemmy.SortHot}, h.last())
	require.Equal(t, pickerNone, a.picker)

	press(t, a, runes("L"))
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, home.ChangeListingType{Listing: lemmy.ListingLocal}, h.last())
}

func TestPostKeysDispatchIntents(t *testing.T) {
	t.Parallel()

	a, h := newTestApp(t)
	first, second := pv(1, "first"), pv(2, "second")
	withPosts(a, first, second)

	press(t, a, runes("u"))
	require.Equal(t, home.Upvote{Post: first}, h.last())

	press(t, a, runes("j"))
	press(t, a, runes("d"))
	require.Equal(t, home.Downvote{Post: second}, h.last())
	press(t, a, runes("s"))
	require.Equal(t, home.SavePost{Post: second}, h.last())

	// past the last post asks for more
	press(t, a, runes("j"))
	require.Equal(t, home.LoadMore{}, h.last())

	press(t, a, runes("r"))
	require.Equal(t, home.Refresh{}, h.last())

	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, home.OpenPost{Post: second}, h.last())
}

func TestRouteOpensPostWithLinks(t *testing.T) {
	t.Parallel()

	a, h := newTestApp(t)
	p := pv(9, "links")
	body := "docs at https://join-lemmy.org/docs"
	p.Post.Body = &body
	withPosts(a, p)

	a.Update(routeMsg(home.PostRoute(9)))
	require.Equal(t, viewPost, a.view)
	require.Equal(t, []string{"https://join-lemmy.org/docs"}, a.links)
	require.Contains(t, a.View(), "https://join-lemmy.org/docs")

	msg := press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, home.OpenLink{URL: "https://join-lemmy.org/docs"}, h.last())
	require.Equal(t, statusMsg("opened https://join-lemmy.org/docs"), msg)

	press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, viewFeed, a.view)

	a.Update(routeMsg("post/404?fetch=true"))
	require.Equal(t, viewFeed, a.view)
	require.True(t, a.isErr)
}

func TestFullScreenLoadingView(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)
	a.Update(feedStateMsg(feed.State{Loading: true, Page: 1, Posts: []lemmy.PostView{pv(1, "stale")}}))
	out := a.View()
	require.Contains(t, out, "Loading posts")
	require.NotContains(t, out, "stale")

	a.Update(feedStateMsg(feed.State{Loading: false, Page: 1, Posts: []lemmy.PostView{pv(1, "fresh")}}))
	require.Contains(t, a.View(), "fresh")
}

func TestDrawerSwitchAndSignOut(t *testing.T) {
	t.Parallel()

	amy := testdata.NewAccount("amy", "lemmy.ml")
	amy.Current = true
	bob := testdata.NewAccount("bob", "beehaw.org")
	a, h := newTestApp(t, amy, bob)

	press(t, a, runes("a"))
	require.True(t, a.drawerOpen)
	require.Contains(t, a.View(), "bob@beehaw.org")

	press(t, a, runes("j"))
	msg := press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, home.SwitchAccount{ID: bob.ID}, h.last())
	require.Equal(t, statusMsg("switched to bob@beehaw.org"), msg)
	require.False(t, a.drawerOpen)

	press(t, a, runes("a"))
	press(t, a, runes("x"))
	require.Equal(t, home.SignOut{}, h.last())
}

func TestErrorsReachStatusLine(t *testing.T) {
	t.Parallel()

	a, h := newTestApp(t)
	withPosts(a, pv(1, "p"))
	h.err = lemmy.ErrNotLoggedIn

	msg := press(t, a, runes("u"))
	require.IsType(t, errMsg{}, msg)
	a.Update(msg)
	require.Contains(t, a.View(), "error: lemmy: not logged in")

	a.Update(statusMsg("ok"))
	require.False(t, a.isErr)
	a.Update(errMsg{errors.New("boom")})
	require.Contains(t, a.View(), "error: boom")
}

func TestSessionChangeRefreshes(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)
	_, cmd := a.Update(sessionMsg(lemmy.Session{Instance: "beehaw.org", Auth: "tok"}))
	require.NotNil(t, cmd)
	require.Equal(t, "beehaw.org", a.session.Instance)
	require.Contains(t, a.renderHeader(), "@beehaw.org")
}

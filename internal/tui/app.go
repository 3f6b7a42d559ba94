package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/feed"
	"github.com/leslieriver/jerboa/internal/home"
	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/site"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, in home.Intent) error
	Session() lemmy.Session
	Subscribe(buffer int) (<-chan lemmy.Session, func())
}

type FeedSource interface {
	State() feed.State
	Subscribe(buffer int) (<-chan feed.State, func())
}

type SiteSource interface {
	State() site.State
	Subscribe(buffer int) (<-chan site.State, func())
	Fetch(ctx context.Context, s lemmy.Session) (*lemmy.GetSiteResponse, error)
}

type AccountSource interface {
	Snapshot() account.Snapshot
	Subscribe(buffer int) (<-chan account.Snapshot, func())
}

type Deps struct {
	Home     Dispatcher
	Feed     FeedSource
	Site     SiteSource
	Accounts AccountSource
	Router   *Router
	Log      *slog.Logger
}

type appView string

const (
	viewFeed appView = "feed"
	viewPost appView = "post"
)

type pickerKind string

const (
	pickerNone    pickerKind = ""
	pickerSort    pickerKind = "sort"
	pickerListing pickerKind = "listing"
)

const subscriptionBuffer = 16

// App is the home screen model. All remote work runs through home intents
// in commands; state comes back as subscription messages.
type App struct {
	ctx  context.Context
	deps Deps
	keys *KeyRegistry

	feedCh    <-chan feed.State
	siteCh    <-chan site.State
	acctCh    <-chan account.Snapshot
	sessionCh <-chan lemmy.Session
	cancels   []func()

	feed     feed.State
	site     site.State
	accounts account.Snapshot
	session  lemmy.Session

	view         appView
	cursor       int
	drawerOpen   bool
	drawerCursor int
	picker       pickerKind
	pickerCursor int
	post         lemmy.PostView
	links        []string
	linkCursor   int

	spinner spinner.Model
	status  string
	isErr   bool
	width   int
	height  int
}

func New(ctx context.Context, deps Deps) *App {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	a := &App{
		ctx:      ctx,
		deps:     deps,
		keys:     NewKeyRegistry(),
		view:     viewFeed,
		feed:     deps.Feed.State(),
		site:     deps.Site.State(),
		accounts: deps.Accounts.Snapshot(),
		session:  deps.Home.Session(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	var cancel func()
	a.feedCh, cancel = deps.Feed.Subscribe(subscriptionBuffer)
	a.cancels = append(a.cancels, cancel)
	a.siteCh, cancel = deps.Site.Subscribe(subscriptionBuffer)
	a.cancels = append(a.cancels, cancel)
	a.acctCh, cancel = deps.Accounts.Subscribe(subscriptionBuffer)
	a.cancels = append(a.cancels, cancel)
	a.sessionCh, cancel = deps.Home.Subscribe(subscriptionBuffer)
	a.cancels = append(a.cancels, cancel)
	return a
}

// Close ends the state subscriptions.
func (a *App) Close() {
	for _, c := range a.cancels {
		c()
	}
	a.cancels = nil
}

// messages
type (
	feedStateMsg feed.State
	siteStateMsg site.State
	accountsMsg  account.Snapshot
	sessionMsg   lemmy.Session
	routeMsg     string
	statusMsg    string
	errMsg       struct{ error }
	closedMsg    struct{}
)

func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return wrap(v)
	}
}

func (a *App) waitFeed() tea.Cmd {
	return waitFor(a.feedCh, func(s feed.State) tea.Msg { return feedStateMsg(s) })
}

func (a *App) waitSite() tea.Cmd {
	return waitFor(a.siteCh, func(s site.State) tea.Msg { return siteStateMsg(s) })
}

func (a *App) waitAccounts() tea.Cmd {
	return waitFor(a.acctCh, func(s account.Snapshot) tea.Msg { return accountsMsg(s) })
}

func (a *App) waitSession() tea.Cmd {
	return waitFor(a.sessionCh, func(s lemmy.Session) tea.Msg { return sessionMsg(s) })
}

func (a *App) waitRoute() tea.Cmd {
	if a.deps.Router == nil {
		return nil
	}
	return waitFor(a.deps.Router.Routes(), func(r string) tea.Msg { return routeMsg(r) })
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.waitFeed(),
		a.waitSite(),
		a.waitAccounts(),
		a.waitSession(),
		a.waitRoute(),
		a.spinner.Tick,
		a.dispatch(home.Refresh{}, ""),
		a.fetchSite(),
	)
}

// dispatch runs an intent in a command. done, when set, becomes the status
// line after success.
func (a *App) dispatch(in home.Intent, done string) tea.Cmd {
	return func() tea.Msg {
		if err := a.deps.Home.Dispatch(a.ctx, in); err != nil {
			a.deps.Log.WarnContext(a.ctx, "Intent failed",
				"intent", fmt.Sprintf("%T", in),
				"error", err)
			return errMsg{err}
		}
		if done == "" {
			return nil
		}
		return statusMsg(done)
	}
}

func (a *App) fetchSite() tea.Cmd {
	s := a.deps.Home.Session()
	return func() tea.Msg {
		if _, err := a.deps.Site.Fetch(a.ctx, s); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
	case tea.KeyMsg:
		return a.handleKey(m)
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	case feedStateMsg:
		a.feed = feed.State(m)
		if a.cursor >= len(a.feed.Posts) {
			a.cursor = max(len(a.feed.Posts)-1, 0)
		}
		if a.view == viewPost {
			if pv, ok := a.findPost(a.post.Post.ID); ok {
				a.post = pv
			}
		}
		if a.feed.Err != nil {
			a.setError(a.feed.Err)
		}
		return a, a.waitFeed()
	case siteStateMsg:
		a.site = site.State(m)
		return a, a.waitSite()
	case accountsMsg:
		a.accounts = account.Snapshot(m)
		if a.drawerCursor >= len(a.accounts.Accounts) {
			a.drawerCursor = max(len(a.accounts.Accounts)-1, 0)
		}
		return a, a.waitAccounts()
	case sessionMsg:
		changed := a.session != lemmy.Session(m)
		a.session = lemmy.Session(m)
		if changed {
			return a, tea.Batch(a.waitSession(), a.dispatch(home.Refresh{}, ""))
		}
		return a, a.waitSession()
	case routeMsg:
		a.openRoute(string(m))
		return a, a.waitRoute()
	case statusMsg:
		a.status, a.isErr = string(m), false
	case errMsg:
		a.setError(m.error)
	}
	return a, nil
}

func (a *App) setError(err error) {
	a.status, a.isErr = "error: "+err.Error(), true
}

func (a *App) scope() string {
	switch {
	case a.picker != pickerNone:
		return scopePicker
	case a.drawerOpen:
		return scopeDrawer
	case a.view == viewPost:
		return scopePost
	default:
		return scopeFeed
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := a.scope()
	b := a.keys.Lookup(msg.String(), scope)
	if b == nil {
		return a, nil
	}
	if b.Action == actionQuit {
		return a, tea.Quit
	}
	switch scope {
	case scopePicker:
		return a.handlePicker(b.Action)
	case scopeDrawer:
		return a.handleDrawer(b.Action)
	case scopePost:
		return a.handlePost(b.Action)
	default:
		return a.handleFeed(b.Action)
	}
}

func (a *App) handleFeed(action Action) (tea.Model, tea.Cmd) {
	posts := a.feed.Posts
	switch action {
	case actionUp:
		if a.cursor > 0 {
			a.cursor--
		}
	case actionDown:
		if a.cursor < len(posts)-1 {
			a.cursor++
			return a, nil
		}
		// scrolled past the end
		return a, a.dispatch(home.LoadMore{}, "")
	case actionLoadMore:
		return a, a.dispatch(home.LoadMore{}, "")
	case actionRefresh:
		return a, a.dispatch(home.Refresh{}, "")
	case actionSort:
		a.openPicker(pickerSort)
	case actionListing:
		a.openPicker(pickerListing)
	case actionAccounts:
		a.drawerOpen = true
		if cur, ok := a.accounts.Current(); ok {
			for i, acct := range a.accounts.Accounts {
				if acct.ID == cur.ID {
					a.drawerCursor = i
				}
			}
		}
	}
	if len(posts) == 0 {
		return a, nil
	}
	pv := posts[a.cursor]
	switch action {
	case actionSelect:
		return a, a.dispatch(home.OpenPost{Post: pv}, "")
	case actionOpenLink:
		links := postLinks(pv)
		if len(links) == 0 {
			a.status, a.isErr = "post has no link", false
			return a, nil
		}
		return a, a.dispatch(home.OpenLink{URL: links[0]}, "opened "+links[0])
	case actionUpvote:
		return a, a.dispatch(home.Upvote{Post: pv}, "")
	case actionDownvote:
		return a, a.dispatch(home.Downvote{Post: pv}, "")
	case actionSave:
		return a, a.dispatch(home.SavePost{Post: pv}, "")
	}
	return a, nil
}

func (a *App) openPicker(kind pickerKind) {
	a.picker = kind
	a.pickerCursor = 0
	for i, opt := range a.pickerOptions() {
		if opt == string(a.feed.SortType) || opt == string(a.feed.ListingType) {
			a.pickerCursor = i
		}
	}
}

func (a *App) pickerOptions() []string {
	var out []string
	switch a.picker {
	case pickerSort:
		for _, s := range lemmy.SortTypes {
			out = append(out, string(s))
		}
	case pickerListing:
		for _, l := range lemmy.ListingTypes {
			out = append(out, string(l))
		}
	}
	return out
}

func (a *App) handlePicker(action Action) (tea.Model, tea.Cmd) {
	opts := a.pickerOptions()
	switch action {
	case actionUp:
		if a.pickerCursor > 0 {
			a.pickerCursor--
		}
	case actionDown:
		if a.pickerCursor < len(opts)-1 {
			a.pickerCursor++
		}
	case actionClose:
		a.picker = pickerNone
	case actionSelect:
		kind, choice := a.picker, opts[a.pickerCursor]
		a.picker = pickerNone
		a.cursor = 0
		if kind == pickerSort {
			return a, a.dispatch(home.ChangeSortType{Sort: lemmy.SortType(choice)}, "")
		}
		return a, a.dispatch(home.ChangeListingType{Listing: lemmy.ListingType(choice)}, "")
	}
	return a, nil
}

func (a *App) handleDrawer(action Action) (tea.Model, tea.Cmd) {
	accts := a.accounts.Accounts
	switch action {
	case actionUp:
		if a.drawerCursor > 0 {
			a.drawerCursor--
		}
	case actionDown:
		if a.drawerCursor < len(accts)-1 {
			a.drawerCursor++
		}
	case actionClose:
		a.drawerOpen = false
	case actionSelect:
		if len(accts) == 0 {
			return a, nil
		}
		chosen := accts[a.drawerCursor]
		a.drawerOpen = false
		return a, a.dispatch(home.SwitchAccount{ID: chosen.ID}, "switched to "+account.Label(chosen))
	case actionSignOut:
		if _, ok := a.accounts.Current(); !ok {
			return a, nil
		}
		a.drawerOpen = false
		return a, a.dispatch(home.SignOut{}, "signed out")
	}
	return a, nil
}

func (a *App) handlePost(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case actionUp:
		if a.linkCursor > 0 {
			a.linkCursor--
		}
	case actionDown:
		if a.linkCursor < len(a.links)-1 {
			a.linkCursor++
		}
	case actionClose:
		a.view = viewFeed
	case actionSelect:
		if len(a.links) == 0 {
			return a, nil
		}
		l := a.links[a.linkCursor]
		return a, a.dispatch(home.OpenLink{URL: l}, "opened "+l)
	case actionUpvote:
		return a, a.dispatch(home.Upvote{Post: a.post}, "")
	case actionDownvote:
		return a, a.dispatch(home.Downvote{Post: a.post}, "")
	case actionSave:
		return a, a.dispatch(home.SavePost{Post: a.post}, "")
	}
	return a, nil
}

func (a *App) openRoute(route string) {
	r, ok := parsePostRoute(route)
	if !ok {
		a.deps.Log.WarnContext(a.ctx, "Unknown route", "route", route)
		return
	}
	pv, ok := a.findPost(r.ID)
	if !ok {
		a.setError(fmt.Errorf("post %d is not loaded", r.ID))
		return
	}
	a.view = viewPost
	a.post = pv
	a.links = postLinks(pv)
	a.linkCursor = 0
}

func (a *App) findPost(id int) (lemmy.PostView, bool) {
	for _, p := range a.feed.Posts {
		if p.Post.ID == id {
			return p, true
		}
	}
	return lemmy.PostView{}, false
}

package tui

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/browser"
	"mvdan.cc/xurls/v2"

	"github.com/leslieriver/jerboa/internal/lemmy"
)

// Router is the home screen navigator. Routes are queued for the running
// program; links go to the system browser.
type Router struct {
	routes chan string
	open   func(string) error
}

func NewRouter() *Router {
	return &Router{routes: make(chan string, 8), open: browser.OpenURL}
}

func (r *Router) Navigate(route string) {
	select {
	case r.routes <- route:
	default:
	}
}

func (r *Router) OpenLink(link string) error {
	return r.open(link)
}

func (r *Router) Routes() <-chan string {
	return r.routes
}

// postRoute is a parsed post/<id> route.
type postRoute struct {
	ID    int
	Fetch bool
}

func parsePostRoute(route string) (postRoute, bool) {
	u, err := url.Parse(route)
	if err != nil {
		return postRoute{}, false
	}
	rest, ok := strings.CutPrefix(u.Path, "post/")
	if !ok {
		return postRoute{}, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return postRoute{}, false
	}
	return postRoute{ID: id, Fetch: u.Query().Get("fetch") == "true"}, true
}

var linkPattern = xurls.Strict()

// postLinks lists the post's URL and the links in its body, without repeats.
func postLinks(pv lemmy.PostView) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	if pv.Post.URL != nil {
		add(*pv.Post.URL)
	}
	if pv.Post.Body != nil {
		for _, l := range linkPattern.FindAllString(*pv.Post.Body, -1) {
			add(l)
		}
	}
	return out
}

// Package site tracks the instance's site info, including the acting user
// when the session carries a token.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/observe"
)

type API interface {
	GetSite(ctx context.Context, s lemmy.Session) (*lemmy.GetSiteResponse, error)
}

// State is a snapshot of the site info.
type State struct {
	Site     *lemmy.GetSiteResponse
	Instance string
	Loading  bool
	Err      error
	Version  uint64
}

// MyPerson is the logged in person, or nil when anonymous or not loaded.
func (s State) MyPerson() *lemmy.PersonSafe {
	if s.Site == nil {
		return nil
	}
	return s.Site.MyPerson()
}

type Site struct {
	api API
	log *slog.Logger

	mu    sync.Mutex
	state State
	gen   uint64
	hub   *observe.Hub[State]
}

func New(api API, log *slog.Logger) *Site {
	return &Site{api: api, log: log, hub: observe.NewHub[State]()}
}

func (m *Site) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Site) Subscribe(buffer int) (<-chan State, func()) {
	return m.hub.Subscribe(buffer)
}

// Fetch loads site info for s. A result that arrives after a newer fetch
// started is discarded.
func (m *Site) Fetch(ctx context.Context, s lemmy.Session) (*lemmy.GetSiteResponse, error) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state.Loading = true
	m.state.Err = nil
	m.publishLocked()
	m.mu.Unlock()

	resp, err := m.api.GetSite(ctx, s)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return resp, err
	}
	m.state.Loading = false
	if err != nil {
		m.state.Err = err
		m.publishLocked()
		m.log.WarnContext(ctx, "Failed to fetch site",
			"instance", s.Instance,
			"error", err)
		return nil, fmt.Errorf("fetch site: %w", err)
	}
	m.state.Site = resp
	m.state.Instance = s.Instance
	m.publishLocked()

	person := ""
	if p := resp.MyPerson(); p != nil {
		person = p.Name
	}
	m.log.InfoContext(ctx, "Site loaded",
		"instance", s.Instance,
		"person", person)
	return resp, nil
}

func (m *Site) publishLocked() {
	m.state.Version++
	m.hub.Publish(m.state)
}

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type Action string

type Binding struct {
	Action Action
	Keys   []string
	Help   string
	Scopes []string
}

type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal = "global"
	scopeFeed   = "feed"
	scopeDrawer = "drawer"
	scopePicker = "picker"
	scopePost   = "post"
)

const (
	actionQuit     Action = "quit"
	actionUp       Action = "up"
	actionDown     Action = "down"
	actionSelect   Action = "select"
	actionClose    Action = "close"
	actionUpvote   Action = "upvote"
	actionDownvote Action = "downvote"
	actionSave     Action = "save"
	actionOpenLink Action = "open_link"
	actionRefresh  Action = "refresh"
	actionLoadMore Action = "load_more"
	actionSort     Action = "sort"
	actionListing  Action = "listing"
	actionAccounts Action = "accounts"
	actionSignOut  Action = "sign_out"
)

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scopes: []string{scope}})
	}

	reg(scopeGlobal, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeFeed, actionUp, []string{"k", "up"}, "up")
	reg(scopeFeed, actionDown, []string{"j", "down"}, "down")
	reg(scopeFeed, actionSelect, []string{"enter"}, "open")
	reg(scopeFeed, actionOpenLink, []string{"o"}, "link")
	reg(scopeFeed, actionUpvote, []string{"u", "+"}, "upvote")
	reg(scopeFeed, actionDownvote, []string{"d", "-"}, "downvote")
	reg(scopeFeed, actionSave, []string{"s"}, "save")
	reg(scopeFeed, actionRefresh, []string{"r", "ctrl+r"}, "refresh")
	reg(scopeFeed, actionLoadMore, []string{"n", "G"}, "more")
	reg(scopeFeed, actionSort, []string{"S"}, "sort")
	reg(scopeFeed, actionListing, []string{"L"}, "listing")
	reg(scopeFeed, actionAccounts, []string{"a", "tab"}, "accounts")
	reg(scopeFeed, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeDrawer, actionUp, []string{"k", "up"}, "up")
	reg(scopeDrawer, actionDown, []string{"j", "down"}, "down")
	reg(scopeDrawer, actionSelect, []string{"enter"}, "switch")
	reg(scopeDrawer, actionSignOut, []string{"x"}, "sign out")
	reg(scopeDrawer, actionClose, []string{"esc", "a", "tab"}, "close")

	reg(scopePicker, actionUp, []string{"k", "up"}, "up")
	reg(scopePicker, actionDown, []string{"j", "down"}, "down")
	reg(scopePicker, actionSelect, []string{"enter"}, "apply")
	reg(scopePicker, actionClose, []string{"esc"}, "cancel")

	reg(scopePost, actionUp, []string{"k", "up"}, "up")
	reg(scopePost, actionDown, []string{"j", "down"}, "down")
	reg(scopePost, actionSelect, []string{"enter", "o"}, "open link")
	reg(scopePost, actionUpvote, []string{"u", "+"}, "upvote")
	reg(scopePost, actionDownvote, []string{"d", "-"}, "downvote")
	reg(scopePost, actionSave, []string{"s"}, "save")
	reg(scopePost, actionClose, []string{"esc", "backspace"}, "back")

	return r
}

func (r *KeyRegistry) Register(b Binding) {
	if r == nil || len(b.Keys) == 0 {
		return
	}
	for _, scope := range b.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := r.indexByScope[scope]; !ok {
			r.indexByScope[scope] = make(map[string]*Binding)
		}
		normKeys := normalizeKeyList(b.Keys)
		if len(normKeys) == 0 || r.scopeHasAnyKey(scope, normKeys) {
			continue
		}

		copyBinding := b
		copyBinding.Keys = normKeys
		copyBinding.Scopes = []string{scope}
		r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &copyBinding)
		for _, k := range copyBinding.Keys {
			r.indexByScope[scope][k] = &copyBinding
		}
	}
}

func (r *KeyRegistry) BindingsForScope(scope string) []Binding {
	if r == nil {
		return nil
	}
	items := r.bindingsByScope[scope]
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		out = append(out, *b)
	}
	return out
}

// Lookup finds the binding for keyName in scope, falling back to global.
func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	keyName = normalizeKeyName(keyName)
	if b := r.lookupInScope(keyName, scope); b != nil {
		return b
	}
	if scope != scopeGlobal {
		return r.lookupInScope(keyName, scopeGlobal)
	}
	return nil
}

func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Help)))
	}
	return out
}

// helpLine renders the footer for scope.
func (r *KeyRegistry) helpLine(scope string) string {
	bindings := r.HelpBindings(scope)
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

func (r *KeyRegistry) lookupInScope(keyName, scope string) *Binding {
	lookup, ok := r.indexByScope[scope]
	if !ok {
		return nil
	}
	return lookup[keyName]
}

func (r *KeyRegistry) scopeHasAnyKey(scope string, keys []string) bool {
	lookup := r.indexByScope[scope]
	for _, k := range keys {
		if _, exists := lookup[k]; exists {
			return true
		}
	}
	return false
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) == 1 {
		// single runes keep their case so S and s can differ
		return trimmed
	}
	s := strings.ToLower(trimmed)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "control+", "ctrl+")
	s = strings.ReplaceAll(s, "return", "enter")
	return s
}

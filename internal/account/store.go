package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/leslieriver/jerboa/internal/database"
	"github.com/leslieriver/jerboa/internal/database/repository"
	"github.com/leslieriver/jerboa/internal/observe"
)

// Account is a stored login.
type Account = repository.Account

// ErrNotFound is returned when an account id or query matches nothing.
var ErrNotFound = repository.ErrNotFound

// Snapshot is an immutable view of the stored accounts.
type Snapshot struct {
	Accounts []Account
	Version  uint64
}

// Current applies the session selection rule to the snapshot.
func (s Snapshot) Current() (Account, bool) {
	return Current(s.Accounts)
}

// Current returns the account flagged current, else the first account,
// else false for a nil or empty list.
func Current(accounts []Account) (Account, bool) {
	for _, a := range accounts {
		if a.Current {
			return a, true
		}
	}
	if len(accounts) > 0 {
		return accounts[0], true
	}
	return Account{}, false
}

// Label is the name@instance handle of an account.
func Label(a Account) string {
	return a.Name + "@" + a.Instance
}

// Store keeps the account list in memory and in sqlite. Mutations run in one
// transaction under the store lock and publish exactly one snapshot after
// commit, so readers never observe a half applied sequence.
type Store struct {
	repo *repository.AccountRepo
	log  *slog.Logger

	mu   sync.Mutex
	snap Snapshot
	hub  *observe.Hub[Snapshot]
}

func NewStore(repo *repository.AccountRepo, log *slog.Logger) *Store {
	return &Store{
		repo: repo,
		log:  log,
		hub:  observe.NewHub[Snapshot](),
	}
}

// Load reads the stored accounts and publishes them.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

// Snapshot returns the latest published list.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe delivers every published snapshot. Slow subscribers miss
// intermediate versions but always get the newest one.
func (s *Store) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return s.hub.Subscribe(buffer)
}

// Add stores a login and makes it the current account. Logging in again to
// a known name@instance refreshes the token and keeps the id.
func (s *Store) Add(ctx context.Context, a Account) (Account, error) {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Instance) == "" {
		return Account{}, errors.New("account: name and instance are required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Current = false

	var saved Account
	err := s.mutate(ctx, "add", func(tx *sql.Tx) error {
		if err := s.repo.UpsertTx(ctx, tx, a); err != nil {
			return err
		}
		got, err := s.repo.GetByNameTx(ctx, tx, a.Name, a.Instance)
		if err != nil {
			return err
		}
		if err := s.repo.RemoveCurrentTx(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.SetCurrentTx(ctx, tx, got.ID); err != nil {
			return err
		}
		got.Current = true
		saved = got
		return nil
	})
	return saved, err
}

// RemoveCurrent clears the current flag.
func (s *Store) RemoveCurrent(ctx context.Context) error {
	return s.mutate(ctx, "remove current", func(tx *sql.Tx) error {
		return s.repo.RemoveCurrentTx(ctx, tx)
	})
}

// SetCurrent flags id as current. The previous current must be removed first.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	return s.mutate(ctx, "set current", func(tx *sql.Tx) error {
		return s.repo.SetCurrentTx(ctx, tx, id)
	})
}

// Delete removes one stored account.
func (s *Store) Delete(ctx context.Context, a Account) error {
	return s.mutate(ctx, "delete", func(tx *sql.Tx) error {
		return s.repo.DeleteTx(ctx, tx, a.ID)
	})
}

// Switch removes the current flag and sets it on id as one step.
func (s *Store) Switch(ctx context.Context, id string) (Account, error) {
	var chosen Account
	err := s.mutate(ctx, "switch", func(tx *sql.Tx) error {
		got, err := s.repo.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.repo.RemoveCurrentTx(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.SetCurrentTx(ctx, tx, id); err != nil {
			return err
		}
		got.Current = true
		chosen = got
		return nil
	})
	return chosen, err
}

// SignOut deletes the current account and promotes the first remaining one.
// It reports the removed account; ok is false when nothing was stored.
func (s *Store) SignOut(ctx context.Context) (removed Account, ok bool, err error) {
	err = s.mutate(ctx, "sign out", func(tx *sql.Tx) error {
		accounts, err := s.repo.ListTx(ctx, tx)
		if err != nil {
			return err
		}
		cur, found := Current(accounts)
		if !found {
			return nil
		}
		if err := s.repo.DeleteTx(ctx, tx, cur.ID); err != nil {
			return err
		}
		remaining := make([]Account, 0, len(accounts)-1)
		for _, a := range accounts {
			if a.ID != cur.ID {
				remaining = append(remaining, a)
			}
		}
		if len(remaining) > 0 {
			if err := s.repo.SetCurrentTx(ctx, tx, remaining[0].ID); err != nil {
				return err
			}
		}
		removed, ok = cur, true
		return nil
	})
	return removed, ok, err
}

// Find resolves "name@instance" (or a bare name) to a stored account. An
// exact match wins, otherwise the closest handle by edit distance within
// a third of the query length.
func (s *Store) Find(query string) (Account, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Account{}, ErrNotFound
	}
	accounts := s.Snapshot().Accounts

	for _, a := range accounts {
		if strings.ToLower(Label(a)) == q || strings.ToLower(a.Name) == q {
			return a, nil
		}
	}

	best, bestDist := -1, len(q)/3+1
	for i, a := range accounts {
		handle := strings.ToLower(Label(a))
		if !strings.Contains(q, "@") {
			handle = strings.ToLower(a.Name)
		}
		if d := levenshtein.ComputeDistance(q, handle); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Account{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return accounts[best], nil
}

func (s *Store) mutate(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := database.WithTx(s.repo.DB(), fn); err != nil {
		s.log.WarnContext(ctx, "Account store mutation failed",
			"op", op,
			"error", err)
		return fmt.Errorf("account %s: %w", op, err)
	}
	snap, err := s.reloadLocked(ctx)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Account store updated",
		"op", op,
		"accounts", len(snap.Accounts),
		"version", snap.Version)
	return nil
}

func (s *Store) reloadLocked(ctx context.Context) (Snapshot, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reload accounts: %w", err)
	}
	s.snap = Snapshot{Accounts: accounts, Version: s.snap.Version + 1}
	s.hub.Publish(s.snap)
	return s.snap, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no account row matches.
var ErrNotFound = errors.New("account not found")

// TokenSealer protects session tokens at rest.
type TokenSealer interface {
	Seal(token string) (string, error)
	Open(sealed string) (string, error)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AccountRepo handles accounts.
type AccountRepo struct {
	db     *sql.DB
	sealer TokenSealer
}

func NewAccountRepo(db *sql.DB, sealer TokenSealer) *AccountRepo {
	return &AccountRepo{db: db, sealer: sealer}
}

// DB exposes the handle so callers can group repo calls in one transaction.
func (r *AccountRepo) DB() *sql.DB {
	return r.db
}

func (r *AccountRepo) Upsert(ctx context.Context, a Account) error {
	return r.UpsertTx(ctx, r.db, a)
}

// UpsertTx inserts a new account at the end of the list or refreshes an
// existing one (same name and instance) in place.
func (r *AccountRepo) UpsertTx(ctx context.Context, q execer, a Account) error {
	sealed, err := r.seal(a.JWT)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
	INSERT INTO accounts(id, person_id, name, instance, jwt, current, default_sort_type, default_listing_type, seq, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM accounts), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(name, instance) DO UPDATE SET
	 person_id=excluded.person_id,
	 jwt=excluded.jwt,
	 default_sort_type=excluded.default_sort_type,
	 default_listing_type=excluded.default_listing_type,
	 updated_at=CURRENT_TIMESTAMP;
	`, a.ID, a.PersonID, a.Name, a.Instance, sealed, boolInt(a.Current), a.DefaultSortType, a.DefaultListingType)
	if err != nil {
		return fmt.Errorf("upsert account %s@%s: %w", a.Name, a.Instance, err)
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	return r.ListTx(ctx, r.db)
}

// ListTx returns accounts in insertion order.
func (r *AccountRepo) ListTx(ctx context.Context, q execer) ([]Account, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, person_id, name, instance, jwt, current, default_sort_type, default_listing_type, created_at, updated_at
	FROM accounts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) Get(ctx context.Context, id string) (Account, error) {
	return r.GetTx(ctx, r.db, id)
}

func (r *AccountRepo) GetTx(ctx context.Context, q execer, id string) (Account, error) {
	row := q.QueryRowContext(ctx, `
	SELECT id, person_id, name, instance, jwt, current, default_sort_type, default_listing_type, created_at, updated_at
	FROM accounts WHERE id = ?`, id)
	a, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

// GetByNameTx finds an account by its name@instance identity.
func (r *AccountRepo) GetByNameTx(ctx context.Context, q execer, name, instance string) (Account, error) {
	row := q.QueryRowContext(ctx, `
	SELECT id, person_id, name, instance, jwt, current, default_sort_type, default_listing_type, created_at, updated_at
	FROM accounts WHERE name = ? AND instance = ?`, name, instance)
	a, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *AccountRepo) DeleteTx(ctx context.Context, q execer, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) RemoveCurrent(ctx context.Context) error {
	return r.RemoveCurrentTx(ctx, r.db)
}

// RemoveCurrentTx clears the current flag on every account.
func (r *AccountRepo) RemoveCurrentTx(ctx context.Context, q execer) error {
	if _, err := q.ExecContext(ctx, `UPDATE accounts SET current = 0, updated_at = CURRENT_TIMESTAMP WHERE current = 1`); err != nil {
		return fmt.Errorf("remove current: %w", err)
	}
	return nil
}

func (r *AccountRepo) SetCurrent(ctx context.Context, id string) error {
	return r.SetCurrentTx(ctx, r.db, id)
}

// SetCurrentTx flags id as current. The partial unique index rejects a
// second current row, so callers clear the old one first.
func (r *AccountRepo) SetCurrentTx(ctx context.Context, q execer, id string) error {
	res, err := q.ExecContext(ctx, `UPDATE accounts SET current = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set current %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepo) scan(s scanner) (Account, error) {
	var (
		a       Account
		sealed  string
		current int
	)
	if err := s.Scan(&a.ID, &a.PersonID, &a.Name, &a.Instance, &sealed, &current, &a.DefaultSortType, &a.DefaultListingType, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	jwt, err := r.open(sealed)
	if err != nil {
		return Account{}, fmt.Errorf("open token for %s@%s: %w", a.Name, a.Instance, err)
	}
	a.JWT = jwt
	a.Current = current == 1
	return a, nil
}

func (r *AccountRepo) seal(token string) (string, error) {
	if r.sealer == nil {
		return token, nil
	}
	return r.sealer.Seal(token)
}

func (r *AccountRepo) open(sealed string) (string, error) {
	if r.sealer == nil {
		return sealed, nil
	}
	return r.sealer.Open(sealed)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package testdata

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leslieriver/jerboa/internal/database"
	"github.com/leslieriver/jerboa/internal/database/repository"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenDB returns a migrated sqlite database in a temp dir, closed on cleanup.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(context.Background(), db, Logger()))
	return db
}

// NewAccount builds an unsaved account row.
func NewAccount(name, instance string) repository.Account {
	return repository.Account{
		ID:                 uuid.NewString(),
		PersonID:           int64(len(name)*100 + len(instance)),
		Name:               name,
		Instance:           instance,
		JWT:                "jwt-" + name + "@" + instance,
		DefaultSortType:    "Active",
		DefaultListingType: "Local",
	}
}

// Seed stores accounts in order and flags the one at currentIdx as current
// (-1 for none). It returns the rows as given.
func Seed(ctx context.Context, t testing.TB, repo *repository.AccountRepo, currentIdx int, accts ...repository.Account) []repository.Account {
	t.Helper()

	for i, a := range accts {
		a.Current = false
		require.NoError(t, repo.Upsert(ctx, a))
		if i == currentIdx {
			require.NoError(t, repo.SetCurrent(ctx, a.ID))
			accts[i].Current = true
		}
	}
	return accts
}

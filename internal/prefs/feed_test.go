package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leslieriver/jerboa/internal/lemmy"
)

func TestFeedPrefsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	_, ok, err := LoadFeed()
	require.NoError(t, err)
	require.False(t, ok)

	want := Feed{SortType: lemmy.SortTopWeek, ListingType: lemmy.ListingAll}
	require.NoError(t, SaveFeed(want))

	got, ok, err := LoadFeed()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	_, err = os.Stat(filepath.Join(dir, "jerboa", feedFile+".tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestLoadFeedRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "jerboa"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jerboa", feedFile), []byte("{"), 0o600))

	_, _, err := LoadFeed()
	require.Error(t, err)
}

package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/leslieriver/jerboa/internal/lemmy"
)

const feedFile = "feed.json"

// Feed is the sort and listing used while no account is logged in.
type Feed struct {
	SortType    lemmy.SortType    `json:"sort_type"`
	ListingType lemmy.ListingType `json:"listing_type"`
}

func feedPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "jerboa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, feedFile), nil
}

func SaveFeed(f Feed) error {
	path, err := feedPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFeed returns the saved selection. ok is false when nothing was saved.
func LoadFeed() (f Feed, ok bool, err error) {
	path, err := feedPath()
	if err != nil {
		return Feed{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Feed{}, false, nil
		}
		return Feed{}, false, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return Feed{}, false, err
	}
	return f, true, nil
}

package home

import "github.com/leslieriver/jerboa/internal/lemmy"

// Intent is a user action on the home screen. The set is closed: only the
// types in this file implement it.
type Intent interface {
	intent()
}

type ChangeSortType struct{ Sort lemmy.SortType }

type ChangeListingType struct{ Listing lemmy.ListingType }

// SwitchAccount makes the stored account with ID the active session.
type SwitchAccount struct{ ID string }

// SignOut forgets the current account.
type SignOut struct{}

type Upvote struct{ Post lemmy.PostView }

type Downvote struct{ Post lemmy.PostView }

type SavePost struct{ Post lemmy.PostView }

type OpenPost struct{ Post lemmy.PostView }

type OpenLink struct{ URL string }

// Refresh reloads page 1 keeping the sort and listing.
type Refresh struct{}

// LoadMore asks for the next page after the list was scrolled to the end.
type LoadMore struct{}

func (ChangeSortType) intent()    {}
func (ChangeListingType) intent() {}
func (SwitchAccount) intent()     {}
func (SignOut) intent()           {}
func (Upvote) intent()            {}
func (Downvote) intent()          {}
func (SavePost) intent()          {}
func (OpenPost) intent()          {}
func (OpenLink) intent()          {}
func (Refresh) intent()           {}
func (LoadMore) intent()          {}

package lemmy

import (
	"fmt"
	"strings"
)

// SortType orders the post listing.
type SortType string

const (
	SortActive       SortType = "Active"
	SortHot          SortType = "Hot"
	SortNew          SortType = "New"
	SortTopDay       SortType = "TopDay"
	SortTopWeek      SortType = "TopWeek"
	SortTopMonth     SortType = "TopMonth"
	SortTopYear      SortType = "TopYear"
	SortTopAll       SortType = "TopAll"
	SortMostComments SortType = "MostComments"
	SortNewComments  SortType = "NewComments"
)

// SortTypes lists every sort in menu order.
var SortTypes = []SortType{
	SortActive, SortHot, SortNew,
	SortTopDay, SortTopWeek, SortTopMonth, SortTopYear, SortTopAll,
	SortMostComments, SortNewComments,
}

// ListingType scopes the post listing.
type ListingType string

const (
	ListingAll        ListingType = "All"
	ListingLocal      ListingType = "Local"
	ListingSubscribed ListingType = "Subscribed"
	ListingCommunity  ListingType = "Community"
)

// ListingTypes lists the scopes a home feed can use.
var ListingTypes = []ListingType{ListingSubscribed, ListingLocal, ListingAll}

// ParseSortType accepts any casing of a known sort.
func ParseSortType(s string) (SortType, error) {
	for _, st := range SortTypes {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown sort type %q", s)
}

// ParseListingType accepts any casing of a known listing.
func ParseListingType(s string) (ListingType, error) {
	for _, lt := range []ListingType{ListingAll, ListingLocal, ListingSubscribed, ListingCommunity} {
		if strings.EqualFold(string(lt), strings.TrimSpace(s)) {
			return lt, nil
		}
	}
	return "", fmt.Errorf("unknown listing type %q", s)
}

// VoteType is the direction of a post vote.
type VoteType int

const (
	Upvote   VoteType = 1
	Downvote VoteType = -1
)

// NewVote returns the score to send: repeating the current vote clears it.
func NewVote(current *int, vote VoteType) int {
	if current != nil && *current == int(vote) {
		return 0
	}
	return int(vote)
}

type PersonSafe struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
	ActorID     string  `json:"actor_id"`
	Local       bool    `json:"local"`
	Banned      bool    `json:"banned"`
	Bot         bool    `json:"bot_account"`
}

type CommunitySafe struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Title   string  `json:"title"`
	Icon    *string `json:"icon"`
	ActorID string  `json:"actor_id"`
	Local   bool    `json:"local"`
	NSFW    bool    `json:"nsfw"`
}

type Post struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	URL         *string `json:"url"`
	Body        *string `json:"body"`
	CreatorID   int     `json:"creator_id"`
	CommunityID int     `json:"community_id"`
	Published   string  `json:"published"`
	Updated     *string `json:"updated"`
	Deleted     bool    `json:"deleted"`
	Removed     bool    `json:"removed"`
	Locked      bool    `json:"locked"`
	Stickied    bool    `json:"stickied"`
	NSFW        bool    `json:"nsfw"`
	ApID        string  `json:"ap_id"`
}

type PostAggregates struct {
	PostID    int `json:"post_id"`
	Comments  int `json:"comments"`
	Score     int `json:"score"`
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// PostView is one item of the home listing.
type PostView struct {
	Post      Post           `json:"post"`
	Creator   PersonSafe     `json:"creator"`
	Community CommunitySafe  `json:"community"`
	Counts    PostAggregates `json:"counts"`
	Saved     bool           `json:"saved"`
	Read      bool           `json:"read"`
	MyVote    *int           `json:"my_vote"`
}

type Site struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Sidebar     *string `json:"sidebar"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
}

type SiteView struct {
	Site Site `json:"site"`
}

type LocalUserView struct {
	Person PersonSafe `json:"person"`
}

type MyUserInfo struct {
	LocalUserView LocalUserView `json:"local_user_view"`
}

// GetSiteResponse carries the instance info and, when logged in, the acting user.
type GetSiteResponse struct {
	SiteView *SiteView    `json:"site_view"`
	Admins   []PersonSafe `json:"admins"`
	Online   int          `json:"online"`
	Version  string       `json:"version"`
	MyUser   *MyUserInfo  `json:"my_user"`
}

// MyPerson returns the logged in person, if any.
func (r *GetSiteResponse) MyPerson() *PersonSafe {
	if r == nil || r.MyUser == nil {
		return nil
	}
	p := r.MyUser.LocalUserView.Person
	return &p
}

// GetPosts is the post listing form.
type GetPosts struct {
	Sort        SortType
	Type        ListingType
	Page        int
	Limit       int
	CommunityID int
}

type getPostsResponse struct {
	Posts []PostView `json:"posts"`
}

type postResponse struct {
	PostView PostView `json:"post_view"`
}

// Login is the credential form.
type Login struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type loginResponse struct {
	JWT *string `json:"jwt"`
}

type likePostForm struct {
	PostID int    `json:"post_id"`
	Score  int    `json:"score"`
	Auth   string `json:"auth"`
}

type savePostForm struct {
	PostID int    `json:"post_id"`
	Save   bool   `json:"save"`
	Auth   string `json:"auth"`
}

type errorResponse struct {
	Error string `json:"error"`
}

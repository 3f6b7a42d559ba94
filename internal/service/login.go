package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/lemmy"
)

// LoginAPI is the part of the Lemmy client a login needs.
type LoginAPI interface {
	Login(ctx context.Context, s lemmy.Session, form lemmy.Login) (string, error)
	GetSite(ctx context.Context, s lemmy.Session) (*lemmy.GetSiteResponse, error)
}

type AccountAdder interface {
	Add(ctx context.Context, a account.Account) (account.Account, error)
}

var ErrNoPerson = errors.New("site returned no user for the new token")

// LoginService signs in to an instance and stores the result as the
// current account.
type LoginService struct {
	API      LoginAPI
	Accounts AccountAdder
	Log      *slog.Logger

	DefaultSortType    lemmy.SortType
	DefaultListingType lemmy.ListingType
}

// Login exchanges the credentials for a token, asks the site who the token
// belongs to and stores that person as the current account.
func (l *LoginService) Login(ctx context.Context, instance, user, password string) (account.Account, error) {
	instance = strings.TrimSpace(instance)
	user = strings.TrimSpace(user)
	if instance == "" || user == "" {
		return account.Account{}, errors.New("login: instance and user are required")
	}
	anon := lemmy.Session{Instance: instance}

	token, err := l.API.Login(ctx, anon, lemmy.Login{UsernameOrEmail: user, Password: password})
	if err != nil {
		return account.Account{}, fmt.Errorf("login %s@%s: %w", user, instance, err)
	}
	if info, err := lemmy.ParseToken(token); err != nil {
		l.log().WarnContext(ctx, "Unreadable session token", "instance", instance, "error", err)
	} else {
		l.log().DebugContext(ctx, "Session token issued",
			"instance", instance,
			"localUserID", info.LocalUserID,
			"issuer", info.Issuer)
	}

	authed := lemmy.Session{Instance: instance, Auth: token}
	site, err := l.API.GetSite(ctx, authed)
	if err != nil {
		return account.Account{}, fmt.Errorf("fetch site for %s: %w", instance, err)
	}
	person := site.MyPerson()
	if person == nil {
		return account.Account{}, ErrNoPerson
	}

	saved, err := l.Accounts.Add(ctx, account.Account{
		PersonID:           int64(person.ID),
		Name:               person.Name,
		Instance:           instance,
		JWT:                token,
		DefaultSortType:    string(l.DefaultSortType),
		DefaultListingType: string(l.DefaultListingType),
	})
	if err != nil {
		return account.Account{}, err
	}
	l.log().InfoContext(ctx, "Logged in", "account", account.Label(saved))
	return saved, nil
}

func (l *LoginService) log() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/config"
	"github.com/leslieriver/jerboa/internal/database"
	"github.com/leslieriver/jerboa/internal/database/repository"
	"github.com/leslieriver/jerboa/internal/feed"
	"github.com/leslieriver/jerboa/internal/home"
	"github.com/leslieriver/jerboa/internal/lemmy"
	"github.com/leslieriver/jerboa/internal/logging"
	"github.com/leslieriver/jerboa/internal/prefs"
	"github.com/leslieriver/jerboa/internal/scheduler"
	"github.com/leslieriver/jerboa/internal/secrets"
	"github.com/leslieriver/jerboa/internal/service"
	"github.com/leslieriver/jerboa/internal/site"
	"github.com/leslieriver/jerboa/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jerboa: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	accountFlag := flag.String("account", "", "start as a stored account (name@instance)")
	loginFlag := flag.String("login", "", "log in as instance:user, password read from stdin")
	writeConfig := flag.Bool("write-config", false, "write the effective config file and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *writeConfig {
		return config.Save(cfg)
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(log)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.Database.Path)
		}
	}()
	if err := database.RunMigrations(ctx, db, log); err != nil {
		return err
	}

	box, err := secrets.NewUserBox()
	if err != nil {
		return err
	}
	store := account.NewStore(repository.NewAccountRepo(db, box), log)
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	client := lemmy.New(lemmy.Options{
		Timeout:      cfg.API.Timeout,
		RetryCount:   cfg.API.RetryCount,
		RetryWait:    cfg.API.RetryWait,
		RetryMaxWait: cfg.API.RetryMaxWait,
		UserAgent:    cfg.API.UserAgent,
		QPS:          cfg.API.QPS,
		Burst:        cfg.API.Burst,
	}, log)

	sortType, listingType := feedSelection(ctx, cfg, log)

	if *loginFlag != "" {
		svc := &service.LoginService{
			API:                client,
			Accounts:           store,
			Log:                log,
			DefaultSortType:    sortType,
			DefaultListingType: listingType,
		}
		if err := login(ctx, svc, *loginFlag); err != nil {
			return err
		}
	}

	if cur, ok := store.Snapshot().Current(); ok {
		sortType, listingType = accountSelection(cur, sortType, listingType)
	}

	posts := feed.New(client, sortType, listingType, cfg.Feed.PageSize, log)
	siteInfo := site.New(client, log)
	router := tui.NewRouter()
	h := home.New(store, posts, siteInfo, router, home.Options{
		DefaultInstance: cfg.API.DefaultInstance,
		SaveSelection: func(sort lemmy.SortType, listing lemmy.ListingType) error {
			return prefs.SaveFeed(prefs.Feed{SortType: sort, ListingType: listing})
		},
	}, log)
	if _, err := h.Start(ctx); err != nil {
		return err
	}

	if *accountFlag != "" {
		chosen, err := store.Find(*accountFlag)
		if err != nil {
			return err
		}
		if err := h.Dispatch(ctx, home.SwitchAccount{ID: chosen.ID}); err != nil {
			// the switch stands even when the site is unreachable
			log.WarnContext(ctx, "Account switch incomplete",
				"account", account.Label(chosen),
				"error", err)
		}
	}

	sched := scheduler.New(ctx, cfg.Feed.AutoRefresh, func(ctx context.Context) error {
		return h.Dispatch(ctx, home.Refresh{})
	}, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("feed.auto_refresh: %w", err)
	}
	defer sched.Stop()

	app := tui.New(ctx, tui.Deps{
		Home:     h,
		Feed:     posts,
		Site:     siteInfo,
		Accounts: store,
		Router:   router,
		Log:      log,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	log.InfoContext(ctx, "Exiting")
	return nil
}

// feedSelection starts from config and prefers the saved anonymous choice.
func feedSelection(ctx context.Context, cfg config.Config, log *slog.Logger) (lemmy.SortType, lemmy.ListingType) {
	sortType, err := lemmy.ParseSortType(cfg.Feed.Sort)
	if err != nil {
		log.WarnContext(ctx, "Ignoring feed.sort", "error", err)
		sortType = lemmy.SortActive
	}
	listingType, err := lemmy.ParseListingType(cfg.Feed.Listing)
	if err != nil {
		log.WarnContext(ctx, "Ignoring feed.listing", "error", err)
		listingType = lemmy.ListingLocal
	}

	saved, ok, err := prefs.LoadFeed()
	if err != nil {
		log.WarnContext(ctx, "Failed to load feed prefs", "error", err)
	}
	if ok {
		if st, err := lemmy.ParseSortType(string(saved.SortType)); err == nil {
			sortType = st
		}
		if lt, err := lemmy.ParseListingType(string(saved.ListingType)); err == nil {
			listingType = lt
		}
	}
	return sortType, listingType
}

// accountSelection applies the logged in account's defaults.
func accountSelection(a account.Account, sortType lemmy.SortType, listingType lemmy.ListingType) (lemmy.SortType, lemmy.ListingType) {
	if st, err := lemmy.ParseSortType(a.DefaultSortType); err == nil {
		sortType = st
	}
	if lt, err := lemmy.ParseListingType(a.DefaultListingType); err == nil {
		listingType = lt
	}
	return sortType, listingType
}

func login(ctx context.Context, svc *service.LoginService, spec string) error {
	instance, user, ok := strings.Cut(spec, ":")
	if !ok || instance == "" || user == "" {
		return fmt.Errorf("-login wants instance:user, got %q", spec)
	}
	password, err := readPassword(fmt.Sprintf("password for %s@%s: ", user, instance))
	if err != nil {
		return err
	}
	acct, err := svc.Login(ctx, instance, user, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "logged in as %s\n", account.Label(acct))
	return nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

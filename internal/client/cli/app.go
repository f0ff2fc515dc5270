package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/config"
	"github.com/dmitrijs2005/connecta/internal/client/feed"
	"github.com/dmitrijs2005/connecta/internal/client/mutation"
	"github.com/dmitrijs2005/connecta/internal/client/services"
	"github.com/dmitrijs2005/connecta/internal/client/session"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	feedHome    = "feed"
	feedExplore = "explore"
)

// view is the part of a feed the user is looking at.
type view struct {
	engine *feed.Engine
	offset int
}

// workspace holds everything that lives only while a user is logged in.
type workspace struct {
	feeds  map[string]*feed.Engine
	posts  services.PostService
	toggle *mutation.Coordinator
	view   *view
}

func (w *workspace) close() {
	for _, e := range w.feeds {
		e.Close()
	}
}

type App struct {
	config      *config.Config
	api         *client.HTTPClient
	authService services.AuthService
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu       sync.Mutex
	mode     Mode
	userName string
	ws       *workspace
}

// NewApp wires the session store, the API client and the auth service on
// top of an already migrated database.
func NewApp(c *config.Config, db *sql.DB, log logging.Logger) (*App, error) {
	store := session.NewStore(session.NewMetadataPersister(db), log)

	api, err := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout, store, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:      c,
		api:         api,
		authService: services.NewAuthService(api, store, log),
		log:         log.With("component", "cli"),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
	api.Transport().OnLogout(a.sessionExpired)
	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.authService.State().Authenticated
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", mode)
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// startSession builds fresh feeds and a like/save coordinator for the
// logged-in user, replacing any previous ones.
func (a *App) startSession(userName string) {
	opts := feed.Options{
		Margin:        a.config.PrefetchMargin,
		RetryAttempts: a.config.PageRetryAttempts,
		RetryInterval: a.config.PageRetryInterval,
	}
	home := feed.New(feedHome, a.api.Feed, opts, a.log)
	explore := feed.New(feedExplore, a.api.Explore, opts, a.log)

	ws := &workspace{
		feeds: map[string]*feed.Engine{feedHome: home, feedExplore: explore},
		posts: services.NewPostService(a.api, a.log, home, explore),
		toggle: mutation.New(a.api, func(msg string) {
			fmt.Fprintln(a.out, "!", msg)
		}, a.log, home, explore),
		view: &view{engine: home},
	}

	a.mu.Lock()
	old := a.ws
	a.ws = ws
	a.userName = userName
	a.mu.Unlock()

	if old != nil {
		old.close()
	}
}

func (a *App) endSession() {
	a.mu.Lock()
	old := a.ws
	a.ws = nil
	a.userName = ""
	a.mu.Unlock()

	if old != nil {
		old.close()
	}
}

// workspace returns the current session's state, or nil when logged out.
func (a *App) workspace() *workspace {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ws
}

// sessionExpired is called by the transport after it gave up on the
// session. The user lands back at the logged-out prompt.
func (a *App) sessionExpired(ctx context.Context, reason error) {
	a.log.Info(ctx, "session ended by transport", "reason", reason)
	a.endSession()
	fmt.Fprintln(a.out, "Session expired. Please log in again.")
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// mode between online and offline. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(ctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

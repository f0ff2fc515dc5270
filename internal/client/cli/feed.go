package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/connecta/internal/client/feed"
	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/client/services"
)

var errBadID = errors.New("bad post id")

// Feed opens the home feed from the top.
func (a *App) Feed(ctx context.Context) error {
	return a.open(ctx, feedHome)
}

// Explore opens the explore feed from the top.
func (a *App) Explore(ctx context.Context) error {
	return a.open(ctx, feedExplore)
}

func (a *App) open(ctx context.Context, name string) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}
	eng := ws.feeds[name]

	a.mu.Lock()
	ws.view = &view{engine: eng}
	v := *ws.view
	a.mu.Unlock()

	var st feed.State
	err := eng.RefreshIfStale(ctx)
	if err == nil {
		st, err = fill(ctx, eng, a.config.PageSize-1)
	} else {
		st = eng.Snapshot()
	}
	if errors.Is(err, feed.ErrClosed) {
		return err
	}
	a.render(v, st)
	if err != nil {
		a.pageFailed(err)
	}
	return err
}

// More advances the view by one screen, loading pages as it gets close to
// the end of what is loaded.
func (a *App) More(ctx context.Context) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}

	a.mu.Lock()
	v := *ws.view
	a.mu.Unlock()

	loaded := len(v.engine.Snapshot().Items)
	if loaded == 0 {
		return a.open(ctx, v.engine.Name())
	}

	// a short last screen continues where it stopped
	size := a.config.PageSize
	next := min(v.offset+size, loaded)
	st, err := fill(ctx, v.engine, next+size-1)
	if errors.Is(err, feed.ErrClosed) {
		return err
	}
	if next >= len(st.Items) {
		if err != nil {
			a.pageFailed(err)
			return err
		}
		fmt.Fprintln(a.out, "You're all caught up.")
		return nil
	}

	v.offset = next
	a.mu.Lock()
	if ws.view.engine == v.engine {
		ws.view.offset = next
	}
	a.mu.Unlock()

	a.render(v, st)
	if err != nil {
		a.pageFailed(err)
	}
	return err
}

// Refresh reloads the current feed from page one.
func (a *App) Refresh(ctx context.Context) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}

	a.mu.Lock()
	ws.view.offset = 0
	v := *ws.view
	a.mu.Unlock()

	if err := v.engine.Refresh(ctx); err != nil {
		a.pageFailed(err)
		return err
	}
	st, err := fill(ctx, v.engine, a.config.PageSize-1)
	if errors.Is(err, feed.ErrClosed) {
		return err
	}
	a.render(v, st)
	if err != nil {
		a.pageFailed(err)
	}
	return err
}

// fill makes sure index last is loaded unless the listing ends first. The
// first load goes through NearEnd so the prefetch margin applies.
func fill(ctx context.Context, eng *feed.Engine, last int) (feed.State, error) {
	err := eng.NearEnd(ctx, last)
	st := eng.Snapshot()
	for err == nil && last >= len(st.Items) && st.HasMore {
		err = eng.LoadNext(ctx)
		st = eng.Snapshot()
	}
	return st, err
}

func (a *App) render(v view, st feed.State) {
	if len(st.Items) == 0 {
		if st.LastError == nil {
			fmt.Fprintf(a.out, "%s: no posts yet.\n", v.engine.Name())
		}
		return
	}

	end := min(v.offset+a.config.PageSize, len(st.Items))
	more := ""
	if st.HasMore {
		more = "+"
	}
	fmt.Fprintf(a.out, "%s: posts %d-%d of %d%s\n", v.engine.Name(), v.offset+1, end, len(st.Items), more)
	for _, p := range st.Items[v.offset:end] {
		fmt.Fprintln(a.out, renderPost(p))
	}
}

func (a *App) pageFailed(err error) {
	if errors.Is(err, feed.ErrClosed) {
		return
	}
	fmt.Fprintf(a.out, "Could not load posts: %s. Type 'more' to retry.\n", services.ResultOf(err).Error)
}

// Show prints one post, from a loaded feed when possible.
func (a *App) Show(ctx context.Context, arg string) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}
	id, err := a.parseID(arg)
	if err != nil {
		return err
	}

	if p, ok := ws.lookup(id); ok {
		fmt.Fprintln(a.out, renderPost(p))
		return nil
	}
	p, err := ws.posts.Get(ctx, id)
	if err != nil {
		fmt.Fprintf(a.out, "Post #%d: %s\n", id, services.ResultOf(err).Error)
		return err
	}
	fmt.Fprintln(a.out, renderPost(*p))
	return nil
}

// User prints a profile.
func (a *App) User(ctx context.Context, arg string) error {
	ws := a.workspace()
	if ws == nil {
		return a.needLogin()
	}
	id, err := a.parseID(arg)
	if err != nil {
		return err
	}

	u, err := ws.posts.User(ctx, id)
	if err != nil {
		fmt.Fprintf(a.out, "User #%d: %s\n", id, services.ResultOf(err).Error)
		return err
	}
	fmt.Fprintln(a.out, renderUser(*u))
	return nil
}

// Status prints connectivity, identity and the state of both feeds.
func (a *App) Status(ctx context.Context) error {
	fmt.Fprintf(a.out, "mode: %s\n", orUnknown(string(a.currentMode())))

	st := a.authService.State()
	if !st.Authenticated {
		fmt.Fprintln(a.out, "session: logged out")
		return nil
	}
	fmt.Fprintf(a.out, "session: %s\n", a.identityLabel())

	ws := a.workspace()
	if ws == nil {
		return nil
	}
	for _, name := range []string{feedHome, feedExplore} {
		fs := ws.feeds[name].Snapshot()
		line := fmt.Sprintf("%s: %d loaded", name, len(fs.Items))
		if fs.HasMore {
			line += ", more available"
		}
		if fs.Stale {
			line += ", stale"
		}
		if fs.LastError != nil {
			line += ", last error: " + services.ResultOf(fs.LastError).Error
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (ws *workspace) lookup(id int64) (models.Post, bool) {
	for _, name := range []string{feedHome, feedExplore} {
		if p, ok := ws.feeds[name].Post(id); ok {
			return p, true
		}
	}
	return models.Post{}, false
}

func (a *App) parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(a.out, "Not a valid id: %q\n", arg)
		return 0, errBadID
	}
	return id, nil
}

func (a *App) needLogin() error {
	fmt.Fprintln(a.out, "Please log in first (type 'login' or 'register').")
	return errNotLoggedIn
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) identityLabel() string {
	a.mu.Lock()
	name := a.userName
	a.mu.Unlock()
	if name != "" {
		return name
	}
	if st := a.authService.State(); st.Identity != nil {
		return fmt.Sprintf("#%d", st.Identity.ID)
	}
	return ""
}

func (a *App) getStatus() string {
	s := ""
	if a.isLoggedIn() {
		if id := a.identityLabel(); id != "" {
			s = id + " "
		}
	}
	if mode := a.currentMode(); mode != "" {
		s = s + string(mode)
	}
	if s = strings.TrimSpace(s); s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root restores a saved session, starts the connectivity watcher and runs
// the REPL until the user leaves.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to Connecta CLI (type 'help' for commands)")

	if err := a.authService.Restore(ctx); err != nil {
		a.log.Warn(ctx, "saved session not restored", "error", err)
	}
	if a.isLoggedIn() {
		a.startSession("")
		fmt.Fprintf(a.out, "Resumed session %s.\n", a.identityLabel())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
	a.endSession()
}

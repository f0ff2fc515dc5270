package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  []string
}

func (f *fakeExec) record(name, arg string) error {
	f.calls = append(f.calls, name)
	if arg != "" {
		f.args = append(f.args, arg)
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool                        { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error          { return f.record("register", "") }
func (f *fakeExec) Whoami(context.Context) error            { return f.record("whoami", "") }
func (f *fakeExec) Feed(context.Context) error              { return f.record("feed", "") }
func (f *fakeExec) Explore(context.Context) error           { return f.record("explore", "") }
func (f *fakeExec) More(context.Context) error              { return f.record("more", "") }
func (f *fakeExec) Refresh(context.Context) error           { return f.record("refresh", "") }
func (f *fakeExec) Like(_ context.Context, id string) error { return f.record("like", id) }
func (f *fakeExec) Save(_ context.Context, id string) error { return f.record("save", id) }
func (f *fakeExec) Show(_ context.Context, id string) error { return f.record("show", id) }
func (f *fakeExec) User(_ context.Context, id string) error { return f.record("user", id) }
func (f *fakeExec) Post(context.Context) error              { return f.record("post", "") }
func (f *fakeExec) Status(context.Context) error            { return f.record("status", "") }

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", "")
}

func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", "")
}

func captureln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		if len(a) > 0 {
			if s, ok := a[0].(string); ok {
				lines = append(lines, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silencePrintln(t)

	input := rdr("help\nfeed\nlogin\nhelp\nfeed\nmore\nm\nlike 3\nsave 4\nshow 5\nuser 7\nexplore\nrefresh\npost\nwhoami\nstatus\nlogout\nfeed\nfoobar\nexit\nfeed\n")
	exec := &fakeExec{}

	runREPL(context.Background(), exec, func() string { return "status" }, input)

	assert.Equal(t, []string{
		"login", "feed", "more", "more", "like", "save", "show", "user",
		"explore", "refresh", "post", "whoami", "status", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"3", "4", "5", "7"}, exec.args)
}

func TestRunREPL_UsageAndGate(t *testing.T) {
	lines := captureln(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("like\nshow\nquit\n"))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Usage: like <id>")
	assert.Contains(t, *lines, "Usage: show <id>")
	assert.Contains(t, *lines, "Bye!")

	*lines = nil
	exec = &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("more\nstatus"))

	assert.Equal(t, []string{"status"}, exec.calls, "last line without newline still runs")
	assert.Contains(t, *lines, "Please log in first (type 'login' or 'register').")
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	lines := captureln(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "(alice online)" }, rdr("help\n"))

	assert.Equal(t, "connecta (alice online)> ", (*lines)[0])
	assert.Contains(t, *lines, helpLoggedOut)
}

package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/config"
	"github.com/dmitrijs2005/connecta/internal/logging"
	"github.com/dmitrijs2005/connecta/internal/testkit/fakeapi"
)

// syncBuffer is written by the watcher goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

type harness struct {
	app *App
	api *fakeapi.Server
	out *syncBuffer
	db  string
}

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerBaseURL = baseURL
	cfg.RequestTimeout = 5 * time.Second
	cfg.PageSize = 3
	cfg.PageRetryAttempts = 1
	cfg.PageRetryInterval = time.Millisecond
	return cfg
}

// newHarness starts a fake backend with alice (id 7, password secret123)
// and seven posts in the home feed, served two per page.
func newHarness(t *testing.T) *harness {
	t.Helper()

	api := fakeapi.New(t)
	api.AddUser(7, "alice", "secret123")
	api.SetFeed(fakeapi.SamplePosts(1, 2, 3, 4, 5, 6, 7)...)
	api.SetExplore(fakeapi.SamplePosts(20, 21)...)

	h := &harness{api: api, out: &syncBuffer{}, db: filepath.Join(t.TempDir(), "connecta.db")}
	h.app = h.newApp(t, "")
	return h
}

// newApp builds an App over the harness database. Prompts read input.
func (h *harness) newApp(t *testing.T, input string) *App {
	t.Helper()

	db, err := client.InitDatabase(context.Background(), h.db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	app, err := NewApp(testConfig(h.api.URL), db, logging.Discard())
	require.NoError(t, err)
	app.out = h.out
	app.reader = rdr(input)
	return app
}

func (h *harness) input(lines ...string) {
	h.app.reader = rdr(strings.Join(lines, "\n") + "\n")
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	stubPasswords(t, "secret123")
	h.input("alice")
	require.NoError(t, h.app.Login(context.Background()))
	h.out.Reset()
}

// stubPasswords answers password prompts in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })

	var mu sync.Mutex
	getPassword = func(w io.Writer, prompt string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(pws) == 0 {
			return nil, io.EOF
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

func silencePrintln(t *testing.T) {
	t.Helper()
	orig := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = orig })
}

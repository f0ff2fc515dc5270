// Package feed turns a page-numbered listing endpoint into an append-only
// "infinite list": pages are fetched forward one at a time, concatenated in
// arrival order and exposed as a single item sequence.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

var ErrClosed = errors.New("feed closed")

// Fetcher loads one page. Page numbers start at 1.
type Fetcher func(ctx context.Context, page int) (*models.FeedPage, error)

type Options struct {
	// Margin is how close to the end the visible index must be for NearEnd
	// to load the next page.
	Margin int
	// RetryAttempts is the total number of tries for a page whose fetch
	// fails with a network error.
	RetryAttempts int
	RetryInterval time.Duration
}

func DefaultOptions() Options {
	return Options{Margin: 2, RetryAttempts: 3, RetryInterval: 200 * time.Millisecond}
}

// State is a snapshot of the engine.
type State struct {
	Items            []models.Post
	IsLoadingInitial bool
	IsLoadingMore    bool
	HasMore          bool
	LastError        error
	// Stale is set by Invalidate and cleared by a successful Refresh.
	Stale bool
}

type Engine struct {
	name  string
	fetch Fetcher
	opts  Options
	log   logging.Logger

	mu       sync.Mutex
	items    []models.Post
	index    map[int64]int
	consumed map[int]bool
	pages    int
	next     int
	started  bool
	hasMore  bool
	loading  bool
	initial  bool
	lastErr  error
	stale    bool
	closed   bool
	// gen is bumped by Refresh and Close; a load that finishes under an older
	// generation is discarded.
	gen uint64

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

func New(name string, fetch Fetcher, opts Options, log logging.Logger) *Engine {
	return &Engine{
		name:      name,
		fetch:     fetch,
		opts:      opts,
		log:       log.With("component", "feed", "feed", name),
		index:     make(map[int64]int),
		consumed:  make(map[int]bool),
		hasMore:   true,
		observers: make(map[int]func(State)),
	}
}

func (e *Engine) Name() string { return e.name }

// LoadNext fetches the next page. It is a no-op while another load is in
// flight or when the listing is exhausted. On failure the accumulated items
// are kept and the error is both returned and recorded in LastError.
func (e *Engine) LoadNext(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.loading {
		e.mu.Unlock()
		return nil
	}

	page := 1
	if e.started {
		if !e.hasMore {
			e.mu.Unlock()
			return nil
		}
		page = e.next
	}
	return e.run(ctx, page, !e.started, false)
}

// NearEnd is the proximity trigger: it loads the next page when
// visibleIndex is within Margin items of the last loaded item.
func (e *Engine) NearEnd(ctx context.Context, visibleIndex int) error {
	e.mu.Lock()
	n := len(e.items)
	e.mu.Unlock()

	if visibleIndex < n-1-e.opts.Margin {
		return nil
	}
	return e.LoadNext(ctx)
}

// Refresh reloads the listing from page one. Items loaded so far stay
// visible until the new first page replaces them. A load in flight is
// superseded.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.gen++
	return e.run(ctx, 1, true, true)
}

// Invalidate marks the loaded items as possibly out of date.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	if e.stale {
		e.mu.Unlock()
		return
	}
	e.stale = true
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

// RefreshIfStale refreshes only after Invalidate.
func (e *Engine) RefreshIfStale(ctx context.Context) error {
	e.mu.Lock()
	stale := e.stale
	e.mu.Unlock()
	if !stale {
		return nil
	}
	return e.Refresh(ctx)
}

// Close stops the engine. Responses still in flight are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.loading = false
	e.gen++
	e.mu.Unlock()
}

// run performs one page load. It is entered with e.mu held and releases it.
func (e *Engine) run(ctx context.Context, page int, initial, reset bool) error {
	if !reset && e.consumed[page] {
		e.hasMore = false
		st := e.stateLocked()
		e.mu.Unlock()
		e.log.Warn(ctx, "next cursor points at a page already loaded", "page", page)
		e.notify(st)
		return nil
	}

	e.loading = true
	e.initial = initial
	gen := e.gen
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)

	p, err := e.fetchWithRetry(ctx, page)

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.log.Debug(ctx, "discarding superseded page", "page", page)
		return nil
	}
	e.loading = false

	if err != nil {
		e.lastErr = err
		st = e.stateLocked()
		e.mu.Unlock()
		e.log.Warn(ctx, "page load failed", "page", page, "error", err)
		e.notify(st)
		return err
	}

	if reset {
		e.items = nil
		e.index = make(map[int64]int)
		e.consumed = make(map[int]bool)
		e.pages = 0
		e.stale = false
	}
	dropped := e.applyLocked(page, p)
	st = e.stateLocked()
	e.mu.Unlock()

	e.log.Debug(ctx, "page loaded", "page", page, "items", len(p.Results), "duplicates", dropped, "has_more", st.HasMore)
	e.notify(st)
	return nil
}

func (e *Engine) applyLocked(page int, p *models.FeedPage) (dropped int) {
	e.started = true
	e.consumed[page] = true
	e.pages++
	e.lastErr = nil

	for _, post := range p.Results {
		if _, seen := e.index[post.ID]; seen {
			dropped++
			continue
		}
		e.index[post.ID] = len(e.items)
		e.items = append(e.items, post.Clone())
	}

	e.hasMore = false
	if p.HasNext() {
		n, ok := models.PageFromCursor(p.Next)
		if !ok {
			n = e.pages + 1
		}
		if !e.consumed[n] {
			e.next = n
			e.hasMore = true
		}
	}
	return dropped
}

func (e *Engine) fetchWithRetry(ctx context.Context, page int) (*models.FeedPage, error) {
	op := func() (*models.FeedPage, error) {
		p, err := e.fetch(ctx, page)
		if err != nil {
			if !errors.Is(err, client.ErrNetwork) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if p == nil {
			p = &models.FeedPage{}
		}
		return p, nil
	}

	tries := max(e.opts.RetryAttempts, 1)
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RetryInterval
	b.MaxInterval = 8 * e.opts.RetryInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, d time.Duration) {
			e.log.Debug(ctx, "retrying page", "page", page, "in", d, "error", err)
		}),
	)
}

// Snapshot returns the current state. The items are copies.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Post returns a copy of the cached post with id.
func (e *Engine) Post(id int64) (models.Post, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return models.Post{}, false
	}
	return e.items[i].Clone(), true
}

// UpdatePost applies fn to the cached post with id and reports whether the
// post was found.
func (e *Engine) UpdatePost(id int64, fn func(*models.Post)) bool {
	e.mu.Lock()
	i, ok := e.index[id]
	if !ok {
		e.mu.Unlock()
		return false
	}
	fn(&e.items[i])
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
	return true
}

// Subscribe registers fn for state changes. fn is called outside the
// engine's lock.
func (e *Engine) Subscribe(fn func(State)) (cancel func()) {
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		delete(e.observers, id)
		e.obsMu.Unlock()
	}
}

func (e *Engine) stateLocked() State {
	items := make([]models.Post, len(e.items))
	for i, p := range e.items {
		items[i] = p.Clone()
	}
	return State{
		Items:            items,
		IsLoadingInitial: e.loading && e.initial,
		IsLoadingMore:    e.loading && !e.initial,
		HasMore:          e.hasMore,
		LastError:        e.lastErr,
		Stale:            e.stale,
	}
}

func (e *Engine) notify(st State) {
	e.obsMu.Lock()
	fns := make([]func(State), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

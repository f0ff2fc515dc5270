// Package session owns the client's credential state: the current token
// pair, the identity decoded from it, and its persisted copy.
//
// A Store is created once per process, restored from persistence at start
// (Restore) and cleared on logout or when the refresh token is rejected
// (ClearCredentials). All methods are safe for concurrent use; observers are
// called after every change, outside the store's lock.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

// State is the observable part of the session.
type State struct {
	Authenticated bool
	Identity      *Identity
}

type Store struct {
	mu        sync.RWMutex
	creds     models.Credentials
	identity  *Identity
	persister Persister
	log       logging.Logger

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

func NewStore(p Persister, log logging.Logger) *Store {
	return &Store{
		persister: p,
		log:       log.With("component", "session"),
		observers: make(map[int]func(State)),
	}
}

// SetCredentials installs a freshly issued pair. A pair whose access token
// cannot be decoded leaves the session logged out; that is not an error.
// Only persistence failures are returned.
func (s *Store) SetCredentials(ctx context.Context, c models.Credentials) error {
	id, err := DecodeIdentity(c.AccessToken)
	if err != nil {
		s.log.Warn(ctx, "discarding credentials with undecodable access token", "error", err)
		return s.ClearCredentials(ctx)
	}

	s.mu.Lock()
	s.creds = c
	s.identity = &id
	st := s.stateLocked()
	s.mu.Unlock()

	err = s.persister.Save(ctx, Persisted{
		Authenticated: true,
		Identity:      &id,
		AccessToken:   c.AccessToken,
		RefreshToken:  c.RefreshToken,
	})
	s.notify(st)
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	s.log.Info(ctx, "session established", "user_id", id.ID)
	return nil
}

// SetAccessToken replaces the access token after a refresh and keeps the
// refresh token.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	id, err := DecodeIdentity(token)
	if err != nil {
		s.log.Warn(ctx, "refreshed access token is undecodable, logging out", "error", err)
		return s.ClearCredentials(ctx)
	}

	s.mu.Lock()
	if s.creds.RefreshToken == "" {
		// cleared while the refresh was in flight
		s.mu.Unlock()
		return nil
	}
	s.creds.AccessToken = token
	s.identity = &id
	st := s.stateLocked()
	s.mu.Unlock()

	err = s.persister.SaveAccessToken(ctx, token, Persisted{Authenticated: true, Identity: &id})
	s.notify(st)
	if err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	return nil
}

// ClearCredentials drops tokens and identity from memory and persistence.
// Calling it on an empty session is a no-op apart from the persistence wipe.
func (s *Store) ClearCredentials(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.identity != nil
	s.creds = models.Credentials{}
	s.identity = nil
	st := s.stateLocked()
	s.mu.Unlock()

	err := s.persister.Clear(ctx)
	s.notify(st)
	if err != nil {
		return fmt.Errorf("clear persisted credentials: %w", err)
	}
	if wasAuthenticated {
		s.log.Info(ctx, "session cleared")
	}
	return nil
}

// Restore loads the previous session. A missing or malformed stored token
// results in a clean logged-out state, not an error.
func (s *Store) Restore(ctx context.Context) error {
	p, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted session: %w", err)
	}

	if p.AccessToken == "" {
		if p.Authenticated || p.RefreshToken != "" {
			return s.ClearCredentials(ctx)
		}
		return nil
	}

	id, err := DecodeIdentity(p.AccessToken)
	if err != nil {
		s.log.Warn(ctx, "stored access token is unreadable, starting logged out", "error", err)
		return s.ClearCredentials(ctx)
	}

	s.mu.Lock()
	s.creds = models.Credentials{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
	s.identity = &id
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	s.log.Debug(ctx, "session restored", "user_id", id.ID)
	return nil
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Subscribe registers fn for state changes. The returned func unregisters it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) stateLocked() State {
	if s.identity == nil {
		return State{}
	}
	id := *s.identity
	return State{Authenticated: true, Identity: &id}
}

func (s *Store) notify(st State) {
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

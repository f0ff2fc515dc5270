package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
	"github.com/dmitrijs2005/connecta/internal/testkit/fakeapi"
)

// memStore is an in-memory TokenStore.
type memStore struct {
	mu      sync.Mutex
	creds   models.Credentials
	clears  int
	rotated int
}

func (m *memStore) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.AccessToken
}

func (m *memStore) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.RefreshToken
}

func (m *memStore) SetAccessToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds.RefreshToken == "" {
		return nil
	}
	m.creds.AccessToken = token
	return nil
}

func (m *memStore) SetCredentials(_ context.Context, c models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	m.rotated++
	return nil
}

func (m *memStore) ClearCredentials(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = models.Credentials{}
	m.clears++
	return nil
}

func (m *memStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

func newTestClient(t *testing.T, api *fakeapi.Server, store TokenStore) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(api.URL, 5*time.Second, store, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// loggedIn returns a store holding a fresh pair for user 7.
func loggedIn(api *fakeapi.Server) *memStore {
	return &memStore{creds: api.IssueTokens(7)}
}

package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
	"github.com/dmitrijs2005/connecta/internal/testkit/fakeapi"
)

func TestNewTransport_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost/api", "://bad"} {
		_, err := NewTransport(raw, nil, &memStore{}, logging.Discard())
		assert.Error(t, err, raw)
	}
}

func TestTransport_AttachesTokenAndRequestID(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	_, err := c.Feed(context.Background(), 1)
	require.NoError(t, err)

	h := api.LastHeader("/posts/feed/")
	assert.Equal(t, "Bearer "+store.AccessToken(), h.Get("Authorization"))
	_, err = uuid.Parse(h.Get(RequestIDHeaderName))
	assert.NoError(t, err)
}

func TestTransport_AnonymousRequestsCarryNoToken(t *testing.T) {
	api := fakeapi.New(t)
	c := newTestClient(t, api, loggedIn(api))

	require.NoError(t, c.Ping(context.Background()))
	assert.Empty(t, api.LastHeader("/health/").Get("Authorization"))
}

func TestTransport_RefreshesOnceAndReplays(t *testing.T) {
	api := fakeapi.New(t)
	api.SetFeed(fakeapi.SamplePosts(1)...)
	store := loggedIn(api)
	refresh := store.RefreshToken()
	stale := store.AccessToken()
	c := newTestClient(t, api, store)

	api.ExpireAccessTokens()
	page, err := c.Feed(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	assert.Equal(t, 1, api.RefreshCalls())
	assert.Equal(t, 2, api.Requests("/posts/feed/"))
	assert.NotEqual(t, stale, store.AccessToken())
	assert.Equal(t, refresh, store.RefreshToken())
	assert.Zero(t, store.Clears())
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	api := fakeapi.New(t)
	api.SetFeed(fakeapi.SamplePosts(1, 2)...)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	api.ExpireAccessTokens()
	api.SetRefreshDelay(100 * time.Millisecond)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Feed(context.Background(), 1)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, api.RefreshCalls())
	assert.Zero(t, store.Clears())
}

func TestTransport_RefreshRejectedLogsOut(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	var hooks atomic.Int32
	c.Transport().OnLogout(func(context.Context, error) { hooks.Add(1) })

	api.ExpireAccessTokens()
	api.RejectRefresh(true)

	_, err := c.Feed(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	assert.Equal(t, 1, store.Clears())
	assert.Empty(t, store.AccessToken())
	assert.Empty(t, store.RefreshToken())
	assert.Equal(t, int32(1), hooks.Load())
	assert.Equal(t, 1, api.Requests("/posts/feed/"))
}

func TestTransport_RefreshNetworkFailureLogsOut(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	var hooks, calls atomic.Int32
	c.Transport().OnLogout(func(context.Context, error) { hooks.Add(1) })
	c.Transport().SetRefresher(func(context.Context, string) (models.Credentials, error) {
		calls.Add(1)
		return models.Credentials{}, networkError(errors.New("connection reset by peer"))
	})

	api.ExpireAccessTokens()
	_, err := c.Feed(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrNetwork)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, store.Clears())
	assert.Empty(t, store.AccessToken())
	assert.Empty(t, store.RefreshToken())
	assert.Equal(t, int32(1), hooks.Load())
	assert.Equal(t, 1, api.Requests("/posts/feed/"))
}

func TestTransport_ConcurrentRejectedRefreshLogsOutOnce(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	var hooks atomic.Int32
	c.Transport().OnLogout(func(context.Context, error) { hooks.Add(1) })

	api.ExpireAccessTokens()
	api.RejectRefresh(true)
	api.SetRefreshDelay(100 * time.Millisecond)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Feed(context.Background(), 1)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrAuthentication)
	}
	assert.Equal(t, 1, api.RefreshCalls())
	assert.Equal(t, 1, store.Clears())
	assert.Equal(t, int32(1), hooks.Load())
	assert.Equal(t, n, api.Requests("/posts/feed/"))
}

func TestTransport_NoRefreshTokenLogsOutWithoutCallingRefresh(t *testing.T) {
	api := fakeapi.New(t)
	store := &memStore{}
	store.creds.AccessToken = api.IssueTokens(7).AccessToken
	c := newTestClient(t, api, store)

	api.ExpireAccessTokens()
	_, err := c.Feed(context.Background(), 1)

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, api.RefreshCalls())
	assert.Equal(t, 1, store.Clears())
}

func TestTransport_SecondUnauthorizedIsFatal(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	var hooks atomic.Int32
	c.Transport().OnLogout(func(context.Context, error) { hooks.Add(1) })
	api.FailNext("/posts/feed/", http.StatusUnauthorized, http.StatusUnauthorized)

	_, err := c.Feed(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, 1, api.RefreshCalls())
	assert.Equal(t, 2, api.Requests("/posts/feed/"))
	assert.Equal(t, 1, store.Clears())
	assert.Equal(t, int32(1), hooks.Load())
}

func TestTransport_RotatedRefreshTokenIsStored(t *testing.T) {
	api := fakeapi.New(t)
	api.RotateRefresh(true)
	store := loggedIn(api)
	old := store.RefreshToken()
	c := newTestClient(t, api, store)

	api.ExpireAccessTokens()
	_, err := c.Feed(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, store.rotated)
	assert.NotEqual(t, old, store.RefreshToken())
	assert.NotEmpty(t, store.RefreshToken())
}

func TestTransport_CancelledCallerDoesNotLogOut(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)

	api.ExpireAccessTokens()
	api.SetRefreshDelay(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Feed(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrAuthentication))
	assert.Zero(t, store.Clears())

	// the shared refresh still completes for later callers
	require.Eventually(t, func() bool { return api.RefreshCalls() == 1 }, time.Second, 10*time.Millisecond)
	_, err = c.Feed(context.Background(), 1)
	assert.NoError(t, err)
}

func TestTransport_NetworkFailure(t *testing.T) {
	store := &memStore{}
	c, err := NewHTTPClient("http://127.0.0.1:1/api", time.Second, store, logging.Discard())
	require.NoError(t, err)

	_, err = c.Feed(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Zero(t, store.Clears())
}

func TestTransport_OtherStatusesPassThrough(t *testing.T) {
	api := fakeapi.New(t)
	store := loggedIn(api)
	c := newTestClient(t, api, store)
	api.FailNext("/posts/feed/", http.StatusInternalServerError)

	_, err := c.Feed(context.Background(), 1)
	assert.ErrorIs(t, err, ErrServer)
	assert.Zero(t, api.RefreshCalls())
	assert.Zero(t, store.Clears())
}

func TestRequestReplayDoesNotMutateOriginal(t *testing.T) {
	req := Request{Method: http.MethodGet, Path: "/posts/feed/", Body: []byte("x")}
	retry := req.replay()

	assert.Equal(t, 0, req.Attempt)
	assert.Equal(t, 1, retry.Attempt)
	assert.Equal(t, req.Path, retry.Path)
}

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

const (
	RequestIDHeaderName = "X-Request-ID"
	tracerName          = "github.com/dmitrijs2005/connecta/internal/client/client"
	refreshTimeout      = 15 * time.Second
)

// TokenStore is the slice of the session store the transport needs.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(ctx context.Context, token string) error
	SetCredentials(ctx context.Context, c models.Credentials) error
	ClearCredentials(ctx context.Context) error
}

// Refresher exchanges a refresh token for new credentials. The returned
// RefreshToken is empty unless the server rotated it.
type Refresher func(ctx context.Context, refreshToken string) (models.Credentials, error)

// Request describes one logical call. The transport builds a new
// *http.Request for every attempt, so a Request can be replayed safely.
type Request struct {
	ID          string
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	// Anonymous requests carry no bearer token and are never refreshed.
	Anonymous bool
	// Attempt is 0 for the first send and 1 for the replay after a refresh.
	Attempt int
}

func (r Request) replay() Request {
	r.Attempt++
	return r
}

// Transport attaches credentials to outgoing requests and survives one 401
// per request by refreshing the access token. Concurrent 401s share a single
// refresh call.
type Transport struct {
	baseURL *url.URL
	http    *http.Client
	store   TokenStore
	refresh Refresher
	log     logging.Logger
	tracer  trace.Tracer
	group   singleflight.Group

	mu       sync.RWMutex
	onLogout func(ctx context.Context, reason error)

	// ended is the token whose session was last ended; requests that were
	// sent with it share that logout instead of running their own.
	endMu    sync.Mutex
	ended    string
	hasEnded bool
}

func NewTransport(baseURL string, httpClient *http.Client, store TokenStore, log logging.Logger) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{
		baseURL: u,
		http:    httpClient,
		store:   store,
		log:     log.With("component", "transport"),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// SetRefresher sets the token exchange used on 401.
func (t *Transport) SetRefresher(r Refresher) {
	t.refresh = r
}

// OnLogout registers the hook run after the transport has cleared the
// session because the credentials could not be renewed.
func (t *Transport) OnLogout(fn func(ctx context.Context, reason error)) {
	t.mu.Lock()
	t.onLogout = fn
	t.mu.Unlock()
}

// Do sends req and returns the response of the last attempt. Non-2xx
// responses other than a handled 401 are returned as-is for the caller to
// map. Transport failures come back as ErrNetwork.
func (t *Transport) Do(ctx context.Context, req Request) (*http.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Anonymous {
		return t.send(ctx, req, "")
	}

	token := t.store.AccessToken()
	resp, err := t.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	original := mapResponse(resp)
	resp.Body.Close()

	if req.Attempt > 0 {
		return nil, t.fail(ctx, original, token, errors.New("rejected after token refresh"))
	}
	retry := req.replay()

	if t.store.RefreshToken() == "" {
		return nil, t.fail(ctx, original, token, ErrNoRefreshToken)
	}

	fresh, err := t.renew(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return nil, networkError(ctx.Err())
		}
		return nil, t.fail(ctx, original, token, err)
	}

	resp, err = t.send(ctx, retry, fresh)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		second := mapResponse(resp)
		resp.Body.Close()
		return nil, t.fail(ctx, second, fresh, errors.New("rejected after token refresh"))
	}
	return resp, nil
}

// renew returns a usable access token. If another request already rotated
// the token since stale was sent, that token is reused; otherwise one
// refresh runs for all waiting callers. A failed refresh ends the session
// once, inside the shared call.
func (t *Transport) renew(ctx context.Context, stale string) (string, error) {
	if cur := t.store.AccessToken(); cur != "" && cur != stale {
		return cur, nil
	}

	ch := t.group.DoChan("refresh", func() (any, error) {
		// the refresh outlives any single caller's cancellation
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		refreshToken := t.store.RefreshToken()
		if refreshToken == "" {
			return "", ErrNoRefreshToken
		}
		if t.refresh == nil {
			return "", errors.New("no refresher configured")
		}

		creds, err := t.refresh(rctx, refreshToken)
		if err != nil {
			t.endSession(rctx, stale, err)
			return "", err
		}
		if creds.RefreshToken != "" {
			err = t.store.SetCredentials(rctx, creds)
		} else {
			err = t.store.SetAccessToken(rctx, creds.AccessToken)
		}
		if err != nil {
			t.log.Warn(rctx, "refreshed token not persisted", "error", err)
		}
		if t.store.AccessToken() != creds.AccessToken {
			err = errors.New("refreshed token was not accepted")
			t.endSession(rctx, stale, err)
			return "", err
		}
		t.log.Debug(rctx, "access token refreshed")
		return creds.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// fail ends the session sent with token and returns the authentication
// error handed to the caller.
func (t *Transport) fail(ctx context.Context, original *APIError, token string, cause error) error {
	t.endSession(ctx, token, cause)

	return &APIError{
		Kind:    ErrAuthentication,
		Status:  original.Status,
		Message: original.Message,
		Fields:  original.Fields,
		Err:     cause,
	}
}

// endSession clears the credentials and runs the logout hook, at most once
// per token. A request sent without a token while none is stored has no
// session to end.
func (t *Transport) endSession(ctx context.Context, token string, cause error) {
	t.endMu.Lock()
	if (t.hasEnded && t.ended == token) ||
		(token == "" && t.store.AccessToken() == "" && t.store.RefreshToken() == "") {
		t.endMu.Unlock()
		return
	}
	t.ended, t.hasEnded = token, true
	t.endMu.Unlock()

	t.log.Warn(ctx, "credentials rejected, logging out", "reason", cause)
	if err := t.store.ClearCredentials(ctx); err != nil {
		t.log.Error(ctx, "failed to clear credentials", "error", err)
	}

	t.mu.RLock()
	hook := t.onLogout
	t.mu.RUnlock()
	if hook != nil {
		hook(ctx, cause)
	}
}

func (t *Transport) send(ctx context.Context, req Request, token string) (*http.Response, error) {
	ctx, span := t.tracer.Start(ctx, req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.String("connecta.request_id", req.ID),
			attribute.Int("connecta.attempt", req.Attempt),
		),
	)
	defer span.End()

	hreq, err := t.build(ctx, req, token)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hreq.Header))

	start := time.Now()
	resp, err := t.http.Do(hreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		t.log.Debug(ctx, "request failed", "method", req.Method, "path", req.Path, "request_id", req.ID, "error", err)
		return nil, networkError(err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	t.log.Debug(ctx, "request done",
		"method", req.Method, "path", req.Path, "status", resp.StatusCode,
		"attempt", req.Attempt, "request_id", req.ID, "elapsed", time.Since(start))
	return resp, nil
}

func (t *Transport) build(ctx context.Context, req Request, token string) (*http.Request, error) {
	u := *t.baseURL
	u.Path = strings.TrimRight(t.baseURL.Path, "/") + req.Path
	u.RawPath = ""
	u.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(RequestIDHeaderName, req.ID)
	if req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}
	return hreq, nil
}

// Package fakeapi is an in-memory Connecta backend for tests. It speaks the
// same REST contract as the real server: simplejwt style tokens, DRF page
// envelopes with absolute next links, and DRF error bodies.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

// StatusDrop makes a queued failure close the connection without a response.
const StatusDrop = -1

type account struct {
	id        int64
	username  string
	password  string
	email     string
	firstName string
	joined    time.Time
}

type likeKey struct {
	post int64
	user int64
}

// CreatedPost records a create-post request as the server parsed it.
type CreatedPost struct {
	UserID           int64
	Caption          string
	Location         string
	CommentsDisabled bool
	Files            []string
	Types            []string
}

type Server struct {
	// URL is the API root, e.g. http://127.0.0.1:1234/api.
	URL string

	srv    *httptest.Server
	secret []byte

	mu            sync.Mutex
	pageSize      int
	gen           int
	users         map[string]*account
	posts         map[int64]*models.Post
	feed          []int64
	explore       []int64
	nextPostID    int64
	likes         map[likeKey]bool
	saves         map[likeKey]bool
	revoked       map[string]bool
	created       []CreatedPost
	failures      map[string][]int
	requests      map[string]int
	headers       map[string]http.Header
	refreshCalls  int
	rejectRefresh bool
	rotateRefresh bool
	refreshDelay  time.Duration
	actionDelay   time.Duration
	bareFeed      bool
	down          bool
}

type Option func(*Server)

// WithPageSize sets the number of posts per feed page (default 2).
func WithPageSize(n int) Option {
	return func(s *Server) { s.pageSize = n }
}

// New starts a server that is closed when the test ends.
func New(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	s := &Server{
		secret:     []byte("fakeapi-secret"),
		pageSize:   2,
		users:      make(map[string]*account),
		posts:      make(map[int64]*models.Post),
		nextPostID: 1000,
		likes:      make(map[likeKey]bool),
		saves:      make(map[likeKey]bool),
		revoked:    make(map[string]bool),
		failures:   make(map[string][]int),
		requests:   make(map[string]int),
		headers:    make(map[string]http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL + "/api"
	tb.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.record)

	api.HandleFunc("/health/", s.health).Methods(http.MethodGet)
	api.HandleFunc("/token/", s.login).Methods(http.MethodPost)
	api.HandleFunc("/token/refresh/", s.refresh).Methods(http.MethodPost)
	api.HandleFunc("/accounts/users/register/", s.register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/users/{id:[0-9]+}/", s.authed(s.user)).Methods(http.MethodGet)
	api.HandleFunc("/posts/feed/", s.authed(s.feedPage)).Methods(http.MethodGet)
	api.HandleFunc("/posts/explore/", s.authed(s.explorePage)).Methods(http.MethodGet)
	api.HandleFunc("/posts/", s.authed(s.createPost)).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id:[0-9]+}/", s.authed(s.post)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id:[0-9]+}/{action:like|unlike|save|unsave}/", s.authed(s.action)).Methods(http.MethodPost)
	return r
}

// record counts requests per path and serves queued failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.requests[path]++
		s.headers[path] = r.Header.Clone()
		status := 0
		if q := s.failures[path]; len(q) > 0 {
			status = q[0]
			s.failures[path] = q[1:]
		}
		s.mu.Unlock()

		switch {
		case status == StatusDrop:
			dropConnection(w)
		case status != 0:
			writeError(w, status, "detail", http.StatusText(status))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("fakeapi: response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err == nil {
		conn.Close()
	}
}

// AddUser registers an account with a fixed id.
func (s *Server) AddUser(id int64, username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &account{
		id:        id,
		username:  username,
		password:  password,
		email:     username + "@example.com",
		firstName: strings.ToUpper(username[:1]) + username[1:],
		joined:    time.Now().UTC(),
	}
}

// SetFeed replaces the home feed with posts, in order.
func (s *Server) SetFeed(posts ...models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = s.storePosts(posts)
}

// SetExplore replaces the explore listing with posts, in order.
func (s *Server) SetExplore(posts ...models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explore = s.storePosts(posts)
}

func (s *Server) storePosts(posts []models.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		p := p.Clone()
		s.posts[p.ID] = &p
		ids = append(ids, p.ID)
	}
	return ids
}

// IssueTokens returns a valid pair for userID without a login request.
func (s *Server) IssueTokens(userID int64) models.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.issuePair(userID)
	if err != nil {
		panic(err)
	}
	return c
}

// ExpireAccessTokens makes every access token issued so far fail with 401.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// RejectRefresh makes the refresh endpoint answer 401.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	s.rejectRefresh = reject
	s.mu.Unlock()
}

// RotateRefresh makes the refresh endpoint issue a new refresh token and
// revoke the old one.
func (s *Server) RotateRefresh(rotate bool) {
	s.mu.Lock()
	s.rotateRefresh = rotate
	s.mu.Unlock()
}

// SetRefreshDelay slows the refresh endpoint down.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// SetActionDelay slows like/unlike/save/unsave down.
func (s *Server) SetActionDelay(d time.Duration) {
	s.mu.Lock()
	s.actionDelay = d
	s.mu.Unlock()
}

// ServeBareFeed makes the feed endpoint answer with a bare array of all
// posts, as the backend does when the feed is cached.
func (s *Server) ServeBareFeed(bare bool) {
	s.mu.Lock()
	s.bareFeed = bare
	s.mu.Unlock()
}

// SetDown makes the health endpoint answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// FailNext queues statuses returned, one per request, for path (relative
// to the API root, e.g. "/posts/feed/"). StatusDrop closes the connection.
func (s *Server) FailNext(path string, statuses ...int) {
	s.mu.Lock()
	s.failures[path] = append(s.failures[path], statuses...)
	s.mu.Unlock()
}

func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// LastHeader returns the headers of the last request to path.
func (s *Server) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[path]
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *Server) Liked(postID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[likeKey{postID, userID}]
}

func (s *Server) Saved(postID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[likeKey{postID, userID}]
}

// LikeCount returns the server-side like count of a post.
func (s *Server) LikeCount(postID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		return p.LikeCount
	}
	return 0
}

func (s *Server) Created() []CreatedPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CreatedPost(nil), s.created...)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

const (
	pathLogin    = "/token/"
	pathRefresh  = "/token/refresh/"
	pathRegister = "/accounts/users/register/"
	pathFeed     = "/posts/feed/"
	pathExplore  = "/posts/explore/"
	pathPosts    = "/posts/"
	pathHealth   = "/health/"
)

func postPath(id int64) string             { return fmt.Sprintf("/posts/%d/", id) }
func postAction(id int64, a string) string { return fmt.Sprintf("/posts/%d/%s/", id, a) }
func userPath(id int64) string             { return fmt.Sprintf("/accounts/users/%d/", id) }

// HTTPClient talks to the Connecta REST API through a Transport.
type HTTPClient struct {
	transport *Transport
	http      *http.Client
	log       logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds the client and its transport. The transport's
// refresher is wired to the client's own Refresh call.
func NewHTTPClient(baseURL string, timeout time.Duration, store TokenStore, log logging.Logger) (*HTTPClient, error) {
	hc := &http.Client{Timeout: timeout}
	t, err := NewTransport(baseURL, hc, store, log)
	if err != nil {
		return nil, err
	}
	c := &HTTPClient{transport: t, http: hc, log: log}
	t.SetRefresher(c.Refresh)
	return c, nil
}

// Transport exposes the underlying transport, mainly to register the
// logout hook.
func (c *HTTPClient) Transport() *Transport {
	return c.transport
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, Request{Method: http.MethodGet, Path: pathHealth, Anonymous: true}, nil)
}

func (c *HTTPClient) Login(ctx context.Context, form models.LoginForm) (models.Credentials, error) {
	var creds models.Credentials
	req, err := jsonRequest(http.MethodPost, pathLogin, form)
	if err != nil {
		return creds, err
	}
	req.Anonymous = true
	err = c.doJSON(ctx, req, &creds)
	return creds, err
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	var creds models.Credentials
	req, err := jsonRequest(http.MethodPost, pathRefresh, map[string]string{"refresh": refreshToken})
	if err != nil {
		return creds, err
	}
	req.Anonymous = true
	err = c.doJSON(ctx, req, &creds)
	return creds, err
}

func (c *HTTPClient) Register(ctx context.Context, form models.RegisterForm) error {
	req, err := jsonRequest(http.MethodPost, pathRegister, form)
	if err != nil {
		return err
	}
	req.Anonymous = true
	return c.doJSON(ctx, req, nil)
}

func (c *HTTPClient) Feed(ctx context.Context, page int) (*models.FeedPage, error) {
	return c.page(ctx, pathFeed, page)
}

func (c *HTTPClient) Explore(ctx context.Context, page int) (*models.FeedPage, error) {
	return c.page(ctx, pathExplore, page)
}

func (c *HTTPClient) page(ctx context.Context, path string, page int) (*models.FeedPage, error) {
	if page < 1 {
		page = 1
	}
	req := Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  url.Values{"page": []string{strconv.Itoa(page)}},
	}
	var p models.FeedPage
	if err := c.doJSON(ctx, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) Post(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	if err := c.doJSON(ctx, Request{Method: http.MethodGet, Path: postPath(id)}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) User(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, Request{Method: http.MethodGet, Path: userPath(id)}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Like(ctx context.Context, postID int64) error {
	return c.action(ctx, postID, "like")
}

func (c *HTTPClient) Unlike(ctx context.Context, postID int64) error {
	return c.action(ctx, postID, "unlike")
}

func (c *HTTPClient) Save(ctx context.Context, postID int64) error {
	return c.action(ctx, postID, "save")
}

func (c *HTTPClient) Unsave(ctx context.Context, postID int64) error {
	return c.action(ctx, postID, "unsave")
}

func (c *HTTPClient) action(ctx context.Context, postID int64, name string) error {
	return c.doJSON(ctx, Request{Method: http.MethodPost, Path: postAction(postID, name)}, nil)
}

// CreatePost uploads the media files and metadata as one multipart request.
func (c *HTTPClient) CreatePost(ctx context.Context, p models.NewPost) (*models.Post, error) {
	body, contentType, err := encodeNewPost(p)
	if err != nil {
		return nil, &APIError{Kind: ErrValidation, Message: err.Error(), Err: err}
	}
	req := Request{Method: http.MethodPost, Path: pathPosts, Body: body, ContentType: contentType}
	c.log.Debug(ctx, "uploading post", "media", len(p.Media), "bytes", len(body))

	var created models.Post
	if err := c.doJSON(ctx, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func encodeNewPost(p models.NewPost) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, m := range p.Media {
		if err := writeFilePart(w, m); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("media_types", string(m.Type)); err != nil {
			return nil, "", err
		}
	}
	if p.Caption != "" {
		if err := w.WriteField("caption", p.Caption); err != nil {
			return nil, "", err
		}
	}
	if p.Location != "" {
		if err := w.WriteField("location", p.Location); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("comments_disabled", strconv.FormatBool(p.CommentsDisabled)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, m models.MediaUpload) error {
	f, err := os.Open(m.Path)
	if err != nil {
		return fmt.Errorf("open media %q: %w", m.Path, err)
	}
	defer f.Close()

	ct, ok := m.Type.ContentType(m.Path)
	if !ok {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media_files"; filename=%q`, filepath.Base(m.Path)))
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read media %q: %w", m.Path, err)
	}
	return nil
}

func jsonRequest(method, path string, v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("encode request: %w", err)
	}
	return Request{Method: method, Path: path, Body: body, ContentType: "application/json"}, nil
}

// doJSON sends req and decodes a 2xx body into out when out is non-nil.
// Every failure is returned as an *APIError.
func (c *HTTPClient) doJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: ErrServer, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

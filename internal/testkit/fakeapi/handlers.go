package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

const (
	accessTTL  = time.Hour
	refreshTTL = 24 * time.Hour
)

type ctxKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError follows the backend's exception handler, which adds
// status_code to every error body.
func writeError(w http.ResponseWriter, status int, key, msg string) {
	writeJSON(w, status, map[string]any{key: msg, "status_code": status})
}

func writeFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status_code"] = http.StatusBadRequest
	writeJSON(w, http.StatusBadRequest, body)
}

func (s *Server) issuePair(userID int64) (models.Credentials, error) {
	access, err := GenerateToken(userID, tokenAccess, s.gen, s.secret, accessTTL)
	if err != nil {
		return models.Credentials{}, err
	}
	refresh, err := GenerateToken(userID, tokenRefresh, 0, s.secret, refreshTTL)
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "detail", "Authentication credentials were not provided.")
			return
		}
		claims, err := ParseToken(raw, s.secret)
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()
		if err != nil || claims.TokenType != tokenAccess || claims.Gen < gen {
			writeError(w, http.StatusUnauthorized, "detail", "Given token not valid for any token type")
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.UserID)))
	}
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var form models.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "detail", "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[form.Username]
	if !ok || acc.password != form.Password {
		writeError(w, http.StatusUnauthorized, "detail", "No active account found with the given credentials")
		return
	}
	creds, err := s.issuePair(acc.id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "detail", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "detail", "Malformed request.")
		return
	}

	s.mu.Lock()
	s.refreshCalls++
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims, err := ParseToken(body.Refresh, s.secret)
	if err != nil || claims.TokenType != tokenRefresh || s.revoked[claims.ID] || s.rejectRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail":      "Token is invalid or expired",
			"code":        "token_not_valid",
			"status_code": http.StatusUnauthorized,
		})
		return
	}

	access, err := GenerateToken(claims.UserID, tokenAccess, s.gen, s.secret, accessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "detail", err.Error())
		return
	}
	resp := map[string]string{"access": access}
	if s.rotateRefresh {
		refresh, err := GenerateToken(claims.UserID, tokenRefresh, 0, s.secret, refreshTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "detail", err.Error())
			return
		}
		s.revoked[claims.ID] = true
		resp["refresh"] = refresh
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var form models.RegisterForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "detail", "Malformed request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string][]string)
	if _, taken := s.users[form.Username]; taken {
		fields["username"] = []string{"A user with that username already exists."}
	}
	for _, acc := range s.users {
		if acc.email == form.Email {
			fields["email"] = []string{"user with this email already exists."}
		}
	}
	if form.Password != form.Password2 {
		fields["password"] = []string{"Password fields didn't match."}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	var maxID int64
	for _, acc := range s.users {
		maxID = max(maxID, acc.id)
	}
	acc := &account{
		id:        maxID + 1,
		username:  form.Username,
		password:  form.Password,
		email:     form.Email,
		firstName: form.FirstName,
		joined:    time.Now().UTC(),
	}
	s.users[acc.username] = acc
	writeJSON(w, http.StatusCreated, acc.profile())
}

func (a *account) profile() models.User {
	return models.User{
		ID:        a.id,
		Username:  a.username,
		Email:     a.email,
		FirstName: a.firstName,
		CreatedAt: a.joined,
	}
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.users {
		if acc.id == id {
			writeJSON(w, http.StatusOK, acc.profile())
			return
		}
	}
	writeError(w, http.StatusNotFound, "detail", "Not found.")
}

func (s *Server) feedPage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	bare := s.bareFeed
	s.mu.Unlock()

	if bare {
		s.mu.Lock()
		posts := s.viewAll(s.feed, userID(r))
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, posts)
		return
	}
	s.listing(w, r, "/posts/feed/", func() []int64 { return s.feed })
}

func (s *Server) explorePage(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, "/posts/explore/", func() []int64 { return s.explore })
}

func (s *Server) listing(w http.ResponseWriter, r *http.Request, path string, ids func() []int64) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeError(w, http.StatusNotFound, "detail", "Invalid page.")
			return
		}
		page = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := ids()
	start := (page - 1) * s.pageSize
	if start > 0 && start >= len(all) {
		writeError(w, http.StatusNotFound, "detail", "Invalid page.")
		return
	}
	end := min(start+s.pageSize, len(all))

	body := map[string]any{
		"count":    len(all),
		"next":     nil,
		"previous": nil,
		"results":  s.viewAll(all[start:end], userID(r)),
	}
	if end < len(all) {
		body["next"] = fmt.Sprintf("%s%s?page=%d", s.URL, path, page+1)
	}
	if page > 1 {
		body["previous"] = fmt.Sprintf("%s%s?page=%d", s.URL, path, page-1)
	}
	writeJSON(w, http.StatusOK, body)
}

// viewAll renders posts for uid. Callers hold s.mu.
func (s *Server) viewAll(ids []int64, uid int64) []models.Post {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, s.view(p, uid))
		}
	}
	return out
}

func (s *Server) view(p *models.Post, uid int64) models.Post {
	v := p.Clone()
	v.IsLiked = s.likes[likeKey{p.ID, uid}]
	v.IsSaved = s.saves[likeKey{p.ID, uid}]
	return v
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "detail", "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, s.view(p, userID(r)))
}

func (s *Server) action(w http.ResponseWriter, r *http.Request) {
	id, uid := pathID(r), userID(r)
	act := mux.Vars(r)["action"]

	s.mu.Lock()
	delay := s.actionDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "detail", "Not found.")
		return
	}
	k := likeKey{id, uid}

	switch act {
	case "like":
		if s.likes[k] {
			writeError(w, http.StatusBadRequest, "message", "Already liked")
			return
		}
		s.likes[k] = true
		p.LikeCount++
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Post liked"})
	case "unlike":
		if !s.likes[k] {
			writeError(w, http.StatusBadRequest, "message", "Post not liked yet")
			return
		}
		delete(s.likes, k)
		p.LikeCount--
		writeJSON(w, http.StatusOK, map[string]string{"message": "Post unliked successfully"})
	case "save":
		if s.saves[k] {
			writeError(w, http.StatusBadRequest, "message", "Post already saved")
			return
		}
		s.saves[k] = true
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Post saved successfully"})
	case "unsave":
		if !s.saves[k] {
			writeError(w, http.StatusBadRequest, "message", "Post not saved yet")
			return
		}
		delete(s.saves, k)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Post unsaved successfully"})
	}
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "detail", "Multipart form parse error.")
		return
	}
	files := r.MultipartForm.File["media_files"]
	types := r.MultipartForm.Value["media_types"]

	switch {
	case len(files) == 0:
		writeFieldErrors(w, map[string][]string{"media_files": {"At least one media file is required."}})
		return
	case len(files) > 10:
		writeFieldErrors(w, map[string][]string{"media_files": {"Maximum 10 media files allowed."}})
		return
	case len(files) != len(types):
		writeFieldErrors(w, map[string][]string{"media_types": {"Number of media types must match number of files."}})
		return
	}

	uid := userID(r)
	rec := CreatedPost{
		UserID:           uid,
		Caption:          r.FormValue("caption"),
		Location:         r.FormValue("location"),
		CommentsDisabled: r.FormValue("comments_disabled") == "true",
		Types:            types,
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	p := &models.Post{
		ID:               s.nextPostID,
		Caption:          rec.Caption,
		Location:         rec.Location,
		CommentsDisabled: rec.CommentsDisabled,
		CreatedAt:        now,
	}
	for _, acc := range s.users {
		if acc.id == uid {
			p.Author = models.UserSummary{ID: acc.id, Username: acc.username, FirstName: acc.firstName}
		}
	}
	for i, fh := range files {
		rec.Files = append(rec.Files, fh.Filename)
		p.Media = append(p.Media, models.MediaItem{
			ID:        p.ID*100 + int64(i),
			Type:      models.MediaType(types[i]),
			URL:       fmt.Sprintf("%s/media/posts/%s", s.srv.URL, fh.Filename),
			Order:     i,
			CreatedAt: now,
		})
	}

	s.posts[p.ID] = p
	s.feed = append([]int64{p.ID}, s.feed...)
	s.created = append(s.created, rec)
	writeJSON(w, http.StatusCreated, s.view(p, uid))
}

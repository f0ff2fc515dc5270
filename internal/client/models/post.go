// Package models defines the client-side view of Connecta resources as the
// REST backend serializes them.
package models

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"
)

// MediaType classifies a media attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// UserSummary is the author block embedded in posts.
type UserSummary struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsPrivate      bool   `json:"is_private,omitempty"`
}

// MediaItem is one attachment of a post, in display order.
type MediaItem struct {
	ID        int64     `json:"id"`
	Type      MediaType `json:"media_type"`
	URL       string    `json:"media_file"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a feed item. IsLiked, IsSaved and LikeCount may be changed
// optimistically on the client before the server confirms.
type Post struct {
	ID               int64       `json:"id"`
	Author           UserSummary `json:"user"`
	Caption          string      `json:"caption"`
	Location         string      `json:"location,omitempty"`
	Media            []MediaItem `json:"media"`
	LikeCount        int64       `json:"likes_count"`
	CommentCount     int64       `json:"comments_count"`
	IsLiked          bool        `json:"is_liked"`
	IsSaved          bool        `json:"is_saved"`
	CommentsDisabled bool        `json:"comments_disabled"`
	IsArchived       bool        `json:"is_archived"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Clone returns a copy that does not share the media slice.
func (p Post) Clone() Post {
	if p.Media != nil {
		p.Media = append([]MediaItem(nil), p.Media...)
	}
	return p
}

// FeedPage is one page of a paginated listing. Next and Previous are opaque
// cursors; empty means absent.
type FeedPage struct {
	Count    int64  `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []Post `json:"results"`
}

// UnmarshalJSON accepts the paginated envelope and also a bare array of
// posts, which the backend returns when it serves the feed from its cache.
// A bare array is a terminal page.
func (p *FeedPage) UnmarshalJSON(b []byte) error {
	var posts []Post
	if err := json.Unmarshal(b, &posts); err == nil {
		*p = FeedPage{Count: int64(len(posts)), Results: posts}
		return nil
	}

	type envelope struct {
		Count    int64   `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []Post  `json:"results"`
	}
	var e envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	*p = FeedPage{Count: e.Count, Results: e.Results}
	if e.Next != nil {
		p.Next = *e.Next
	}
	if e.Previous != nil {
		p.Previous = *e.Previous
	}
	return nil
}

// HasNext reports whether another page follows.
func (p *FeedPage) HasNext() bool {
	return p.Next != ""
}

// PageFromCursor extracts the page number from a cursor. The backend emits
// absolute URLs ("http://host/api/posts/feed/?page=2"); relative forms
// ("?page=2") are accepted too.
func PageFromCursor(cursor string) (int, bool) {
	if cursor == "" {
		return 0, false
	}
	u, err := url.Parse(cursor)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Package mutation applies like/save toggles to cached posts before the
// server confirms them, and reverts them when it does not.
//
// For every post and kind at most one request is in flight. Toggles that
// arrive meanwhile only move the desired state; when the request resolves a
// follow-up is sent only if the desired state still differs from what the
// server has confirmed.
package mutation

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

var ErrUnknownPost = errors.New("post is not loaded")

type Kind int

const (
	KindLike Kind = iota
	KindSave
)

func (k Kind) String() string {
	if k == KindSave {
		return "save"
	}
	return "like"
}

type Outcome int

const (
	// Confirmed: the server accepted the final desired state.
	Confirmed Outcome = iota + 1
	// RolledBack: a request failed and the post shows the last confirmed state again.
	RolledBack
	// Coalesced: a request for this post and kind was already in flight; the
	// toggle was merged into it.
	Coalesced
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	case Coalesced:
		return "coalesced"
	default:
		return "unknown"
	}
}

// Actions is the part of the API the coordinator drives.
type Actions interface {
	Like(ctx context.Context, postID int64) error
	Unlike(ctx context.Context, postID int64) error
	Save(ctx context.Context, postID int64) error
	Unsave(ctx context.Context, postID int64) error
}

// Cache holds posts the coordinator updates. *feed.Engine implements it.
type Cache interface {
	Post(id int64) (models.Post, bool)
	UpdatePost(id int64, fn func(*models.Post)) bool
	Invalidate()
}

type key struct {
	post int64
	kind Kind
}

type entry struct {
	confirmed bool
	desired   bool
	// likes is the server-confirmed like count.
	likes int64
	// shown is the like count last written to the caches.
	shown int64
}

type Coordinator struct {
	api    Actions
	caches []Cache
	notify func(msg string)
	log    logging.Logger

	mu      sync.Mutex
	pending map[key]*entry
}

// New builds a coordinator over caches. notify receives one short message
// per failed toggle; it may be nil. Cache observers must not call back into
// the coordinator synchronously.
func New(api Actions, notify func(msg string), log logging.Logger, caches ...Cache) *Coordinator {
	if notify == nil {
		notify = func(string) {}
	}
	return &Coordinator{
		api:     api,
		caches:  caches,
		notify:  notify,
		log:     log.With("component", "mutation"),
		pending: make(map[key]*entry),
	}
}

// Toggle flips the like or save flag of a post. The cached post changes
// immediately; the call returns once the server state has settled, or right
// away with Coalesced if a request for the same post and kind is already
// running.
func (c *Coordinator) Toggle(ctx context.Context, postID int64, kind Kind) (Outcome, error) {
	k := key{postID, kind}

	c.mu.Lock()
	if e, ok := c.pending[k]; ok {
		e.desired = !e.desired
		desired := e.desired
		c.renderLocked(k, e)
		c.mu.Unlock()
		c.log.Debug(ctx, "toggle merged into pending request", "post", postID, "kind", kind, "desired", desired)
		return Coalesced, nil
	}

	post, ok := c.lookup(postID)
	if !ok {
		c.mu.Unlock()
		return 0, ErrUnknownPost
	}
	flag := post.IsLiked
	if kind == KindSave {
		flag = post.IsSaved
	}
	e := &entry{confirmed: flag, desired: !flag, likes: post.LikeCount, shown: post.LikeCount}
	c.pending[k] = e
	c.renderLocked(k, e)
	c.mu.Unlock()

	return c.drive(ctx, k, e)
}

// Pending reports whether a request for the post and kind is in flight.
func (c *Coordinator) Pending(postID int64, kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[key{postID, kind}]
	return ok
}

func (c *Coordinator) drive(ctx context.Context, k key, e *entry) (Outcome, error) {
	for {
		c.mu.Lock()
		target := e.desired
		if target == e.confirmed {
			delete(c.pending, k)
			c.mu.Unlock()
			return Confirmed, nil
		}
		c.mu.Unlock()

		err := c.send(ctx, k, target)

		c.mu.Lock()
		if err != nil {
			e.desired = e.confirmed
			c.renderLocked(k, e)
			delete(c.pending, k)
			c.mu.Unlock()

			c.log.Warn(ctx, "toggle rolled back", "post", k.post, "kind", k.kind, "error", err)
			c.notify("Failed to update " + k.kind.String())
			for _, cache := range c.caches {
				cache.Invalidate()
			}
			return RolledBack, err
		}
		if k.kind == KindLike {
			if target {
				e.likes++
			} else {
				e.likes--
			}
		}
		e.confirmed = target
		c.mu.Unlock()
	}
}

func (c *Coordinator) send(ctx context.Context, k key, on bool) error {
	switch {
	case k.kind == KindLike && on:
		return c.api.Like(ctx, k.post)
	case k.kind == KindLike:
		return c.api.Unlike(ctx, k.post)
	case on:
		return c.api.Save(ctx, k.post)
	default:
		return c.api.Unsave(ctx, k.post)
	}
}

func (c *Coordinator) lookup(postID int64) (models.Post, bool) {
	for _, cache := range c.caches {
		if p, ok := cache.Post(postID); ok {
			return p, true
		}
	}
	return models.Post{}, false
}

// renderLocked writes the desired state into every cache holding the post.
// A cache whose like count changed since the last write was reloaded from
// the server meanwhile, so its count is left alone.
func (c *Coordinator) renderLocked(k key, e *entry) {
	likes := e.likes
	switch {
	case e.desired && !e.confirmed:
		likes++
	case !e.desired && e.confirmed:
		likes--
	}
	for _, cache := range c.caches {
		cache.UpdatePost(k.post, func(p *models.Post) {
			if k.kind == KindSave {
				p.IsSaved = e.desired
				return
			}
			p.IsLiked = e.desired
			if p.LikeCount == e.shown {
				p.LikeCount = likes
			}
		})
	}
	if k.kind == KindLike {
		e.shown = likes
	}
}

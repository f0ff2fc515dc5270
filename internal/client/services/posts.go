package services

import (
	"context"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

// Invalidator is a cache that can be marked stale, such as *feed.Engine.
type Invalidator interface {
	Invalidate()
}

// PostService creates and fetches posts.
type PostService interface {
	Create(ctx context.Context, form models.NewPost) Result
	Get(ctx context.Context, id int64) (*models.Post, error)
	User(ctx context.Context, id int64) (*models.User, error)
}

type postService struct {
	api   client.Client
	feeds []Invalidator
	log   logging.Logger
}

// NewPostService returns a PostService. feeds are invalidated after a post
// is created so the next refresh shows it.
func NewPostService(api client.Client, log logging.Logger, feeds ...Invalidator) PostService {
	return &postService{api: api, feeds: feeds, log: log.With("service", "posts")}
}

func (s *postService) Create(ctx context.Context, form models.NewPost) Result {
	if err := validateForm(form); err != nil {
		return ResultOf(err)
	}

	created, err := s.api.CreatePost(ctx, form)
	if err != nil {
		s.log.Warn(ctx, "post not created", "error", err)
		return ResultOf(err)
	}
	for _, f := range s.feeds {
		f.Invalidate()
	}
	s.log.Info(ctx, "post created", "post", created.ID, "media", len(created.Media))
	return Result{Success: true}
}

func (s *postService) Get(ctx context.Context, id int64) (*models.Post, error) {
	return s.api.Post(ctx, id)
}

func (s *postService) User(ctx context.Context, id int64) (*models.User, error) {
	return s.api.User(ctx, id)
}

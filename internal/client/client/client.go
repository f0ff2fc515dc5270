package client

import (
	"context"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

// Client is the backend API as the rest of the application sees it.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Login(ctx context.Context, form models.LoginForm) (models.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	Register(ctx context.Context, form models.RegisterForm) error

	Feed(ctx context.Context, page int) (*models.FeedPage, error)
	Explore(ctx context.Context, page int) (*models.FeedPage, error)
	Post(ctx context.Context, id int64) (*models.Post, error)
	User(ctx context.Context, id int64) (*models.User, error)
	CreatePost(ctx context.Context, p models.NewPost) (*models.Post, error)

	Like(ctx context.Context, postID int64) error
	Unlike(ctx context.Context, postID int64) error
	Save(ctx context.Context, postID int64) error
	Unsave(ctx context.Context, postID int64) error
}

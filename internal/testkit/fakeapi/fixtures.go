package fakeapi

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

// SamplePost builds a post by user 1 with one image.
func SamplePost(id int64) models.Post {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(-time.Duration(id) * time.Hour)
	return models.Post{
		ID:      id,
		Author:  models.UserSummary{ID: 1, Username: "bob", FirstName: "Bob"},
		Caption: fmt.Sprintf("post %d", id),
		Media: []models.MediaItem{{
			ID:        id * 100,
			Type:      models.MediaImage,
			URL:       fmt.Sprintf("https://cdn.example.com/posts/%d.jpg", id),
			CreatedAt: created,
		}},
		LikeCount: 10,
		CreatedAt: created,
	}
}

// SamplePosts builds SamplePost for each id.
func SamplePosts(ids ...int64) []models.Post {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, SamplePost(id))
	}
	return out
}

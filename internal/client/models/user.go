package models

import "time"

// Credentials is the access/refresh token pair issued by the backend.
type Credentials struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// User is a profile as returned by /accounts/users/{id}/.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	FirstName      string    `json:"first_name,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	Website        string    `json:"website,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsPrivate      bool      `json:"is_private"`
	FollowersCount int64     `json:"followers_count,omitempty"`
	FollowingCount int64     `json:"following_count,omitempty"`
	PostsCount     int64     `json:"posts_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// LoginForm is the body of POST /token/.
type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the body of POST /accounts/users/register/.
type RegisterForm struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=2"`
	Username  string `json:"username" validate:"required,username"`
	Password  string `json:"password" validate:"required,min=8,password"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// MediaUpload references a local file to attach to a new post.
type MediaUpload struct {
	Path string    `json:"path" validate:"required,file,maxsize"`
	Type MediaType `json:"media_type" validate:"required,oneof=image video"`
}

// NewPost is the multipart payload of POST /posts/.
type NewPost struct {
	Caption          string        `json:"caption" validate:"max=2200"`
	Location         string        `json:"location" validate:"max=255"`
	CommentsDisabled bool          `json:"comments_disabled"`
	Media            []MediaUpload `json:"media" validate:"required,min=1,max=10,dive"`
}

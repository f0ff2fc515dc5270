package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("token carries no user identity")

// Identity is who the access token says the user is. It is for display only:
// the token is decoded, never verified, and authorization stays with the
// server.
type Identity struct {
	ID int64 `json:"id"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID json.Number `json:"user_id"`
}

// DecodeIdentity reads the user id from the access token payload without
// checking the signature or expiry. The user_id claim wins over sub.
func DecodeIdentity(token string) (Identity, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("decode access token: %w", err)
	}

	raw := claims.UserID.String()
	if raw == "" {
		raw = claims.Subject
	}
	if raw == "" {
		return Identity{}, ErrNoSubject
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("decode access token: user id %q: %w", raw, err)
	}
	return Identity{ID: id}, nil
}

// Package backend is the client side of the parcel-server API: password auth,
// session persistence, table inserts and favorites.
package backend

import (
	"fmt"
	"time"

	"parcelview/internal/models"
)

type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// AuthError is a rejection reported by the auth service (bad credentials,
// duplicate email, ...). Transport failures are plain errors.
type AuthError struct {
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

type AuthListener func(event AuthEvent, session *Session)

// TokenStore persists the refresh token between process runs.
type TokenStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

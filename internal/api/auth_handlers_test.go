package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"parcelview/internal/models"
)

func TestAPI_SignupAndLogin(t *testing.T) {
	rr := doRequest(t, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:    "new_surveyor@example.com",
		Password: "long enough password",
	})
	requireStatus(t, http.StatusCreated, rr)
	created := decodeBody[models.User](t, rr)
	require.Equal(t, "new_surveyor@example.com", created.Email)
	require.Equal(t, models.RoleUser, created.Role)
	require.NotContains(t, rr.Body.String(), "password")

	rr = doRequest(t, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:    "NEW_surveyor@example.com",
		Password: "long enough password",
	})
	requireStatus(t, http.StatusConflict, rr)

	rr = doRequest(t, http.MethodPost, "/auth/login", "", CredentialsRequest{
		Email:    "new_surveyor@example.com",
		Password: "long enough password",
	})
	requireStatus(t, http.StatusOK, rr)
	session := decodeBody[SessionResponse](t, rr)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.Equal(t, created.ID, session.User.ID)
	require.False(t, session.ExpiresAt.IsZero())
}

func TestAPI_SignupValidation(t *testing.T) {
	rr := doRequest(t, http.MethodPost, "/auth/signup", "", SignupRequest{Email: "not-an-email", Password: "long enough password"})
	requireStatus(t, http.StatusBadRequest, rr)

	rr = doRequest(t, http.MethodPost, "/auth/signup", "", SignupRequest{Email: "short@example.com", Password: "short"})
	requireStatus(t, http.StatusBadRequest, rr)
}

func TestAPI_LoginWrongPassword(t *testing.T) {
	rr := doRequest(t, http.MethodPost, "/auth/login", "", CredentialsRequest{
		Email:    testUser.Email,
		Password: "wrong password",
	})
	requireStatus(t, http.StatusBadRequest, rr)
	require.Equal(t, "Invalid login credentials", strings.TrimSpace(rr.Body.String()))

	rr = doRequest(t, http.MethodPost, "/auth/login", "", CredentialsRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	requireStatus(t, http.StatusBadRequest, rr)
	require.Equal(t, "Invalid login credentials", strings.TrimSpace(rr.Body.String()))
}

func TestAPI_RefreshRotatesToken(t *testing.T) {
	rr := doRequest(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Email: testUser.Email, Password: testPassword})
	requireStatus(t, http.StatusOK, rr)
	first := decodeBody[SessionResponse](t, rr)

	rr = doRequest(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{RefreshToken: first.RefreshToken})
	requireStatus(t, http.StatusOK, rr)
	second := decodeBody[SessionResponse](t, rr)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, testUser.ID, second.User.ID)

	// the old refresh token was revoked by rotation
	rr = doRequest(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{RefreshToken: first.RefreshToken})
	requireStatus(t, http.StatusUnauthorized, rr)

	rr = doRequest(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{})
	requireStatus(t, http.StatusBadRequest, rr)
}

func TestAPI_LogoutRevokesRefreshToken(t *testing.T) {
	rr := doRequest(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Email: testUser.Email, Password: testPassword})
	requireStatus(t, http.StatusOK, rr)
	session := decodeBody[SessionResponse](t, rr)

	rr = doRequest(t, http.MethodPost, "/auth/logout", session.AccessToken, RefreshTokenRequest{RefreshToken: session.RefreshToken})
	requireStatus(t, http.StatusNoContent, rr)

	// repeated logout is harmless
	rr = doRequest(t, http.MethodPost, "/auth/logout", "", RefreshTokenRequest{RefreshToken: session.RefreshToken})
	requireStatus(t, http.StatusNoContent, rr)

	rr = doRequest(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{RefreshToken: session.RefreshToken})
	requireStatus(t, http.StatusUnauthorized, rr)
}

func TestAPI_SessionAndMe(t *testing.T) {
	rr := doRequest(t, http.MethodGet, "/auth/session", testUserToken, nil)
	requireStatus(t, http.StatusOK, rr)
	require.Equal(t, testUser.ID, decodeBody[models.User](t, rr).ID)

	rr = doRequest(t, http.MethodGet, "/me", testUserToken, nil)
	requireStatus(t, http.StatusOK, rr)

	rr = doRequest(t, http.MethodGet, "/me", "", nil)
	requireStatus(t, http.StatusUnauthorized, rr)

	rr = doRequest(t, http.MethodGet, "/me", "not-a-jwt", nil)
	requireStatus(t, http.StatusUnauthorized, rr)
}

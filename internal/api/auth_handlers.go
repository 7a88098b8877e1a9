package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"

	"parcelview/internal/auth"
	"parcelview/internal/clientinfo"
	"parcelview/internal/database"
	"parcelview/internal/models"
)

const refreshTokenLength = 40

var errInvalidRefreshToken = errors.New("invalid or expired refresh token")

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email" example:"surveyor@example.com"`
	Password string `json:"password" validate:"required" example:"correct horse battery"`
}

type SignupRequest struct {
	Email       string  `json:"email" validate:"required,email" example:"surveyor@example.com"`
	Password    string  `json:"password" validate:"required,min=8" example:"correct horse battery"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=120" example:"Field Surveyor"`
}

type SessionResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
	RefreshToken string       `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

func newRefreshToken() (string, error) {
	generateID, err := nanoid.Standard(refreshTokenLength)
	if err != nil {
		return "", err
	}
	return generateID(), nil
}

// issueSession creates a device session row and signs a fresh access token.
func (s *Server) issueSession(ctx context.Context, q *database.Queries, r *http.Request, user *models.User) (*SessionResponse, error) {
	sessionID := uuid.New()
	accessToken, expiresAt, err := auth.GenerateJWT(user, sessionID, s.config.JWT.Secret, s.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	err = q.CreateSession(ctx, database.CreateSessionParams{
		ID:           sessionID,
		UserID:       user.ID,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     clientinfo.ClientIP(r),
		ExpiresAt:    time.Now().Add(s.config.JWT.RefreshTTL),
	})
	if err != nil {
		return nil, err
	}

	return &SessionResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// @Summary      Create an account
// @Description  Registers a new user with the default role. No session is issued; the client signs in separately.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        signupRequest  body      SignupRequest  true  "Account details"
// @Success      201            {object}  models.User
// @Failure      400            {string}  string "Invalid request body"
// @Failure      409            {string}  string "User already registered"
// @Failure      500            {string}  string "Internal Server Error"
// @Router       /auth/signup [post]
func (s *Server) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "Invalid email or password too short", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := s.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			http.Error(w, "User already registered", http.StatusConflict)
			return
		}
		s.logger.Error("failed to create user", zap.Error(err))
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// @Summary      Logs a user in
// @Description  Authenticates with email and password and returns the user, a short-lived access token and a long-lived refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      CredentialsRequest  true  "Login Credentials"
// @Success      200          {object}  SessionResponse
// @Failure      400          {string}  string "Invalid login credentials"
// @Failure      500          {string}  string "Internal Server Error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "Invalid login credentials", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.logger.Error("failed to load user for login", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid login credentials", http.StatusBadRequest)
		return
	}

	session, err := s.issueSession(r.Context(), s.store.Queries, r, user)
	if err != nil {
		s.logger.Error("failed to create session", zap.String("user_id", user.ID.String()), zap.Error(err))
		http.Error(w, "Failed to process login session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// @Summary      Refresh access token
// @Description  Exchanges a valid refresh token for a new access token and a new refresh token. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshTokenRequest   body      RefreshTokenRequest  true  "Refresh Token"
// @Success      200                   {object}  SessionResponse
// @Failure      400                   {string}  string "Invalid request body or missing token"
// @Failure      401                   {string}  string "Invalid or expired refresh token"
// @Failure      500                   {string}  string "Internal Server Error"
// @Router       /auth/refresh [post]
func (s *Server) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	var session *SessionResponse

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.GetUserByRefreshToken(r.Context(), req.RefreshToken)
		if err != nil {
			return err
		}
		if user == nil {
			return errInvalidRefreshToken
		}

		if _, err := q.DeleteSessionByRefreshToken(r.Context(), req.RefreshToken); err != nil {
			return err
		}

		session, err = s.issueSession(r.Context(), q, r, user)
		return err
	})

	if txErr != nil {
		if errors.Is(txErr, errInvalidRefreshToken) {
			http.Error(w, txErr.Error(), http.StatusUnauthorized)
		} else {
			s.logger.Error("refresh token transaction failed", zap.Error(txErr))
			http.Error(w, "Failed to refresh token", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// @Summary      Log out
// @Description  Revokes the given refresh token. Unknown tokens are ignored so the call is idempotent.
// @Tags         auth
// @Accept       json
// @Param        refreshTokenRequest   body      RefreshTokenRequest  true  "Refresh Token"
// @Success      204                   {null}    nil     "No Content"
// @Failure      400                   {string}  string "Invalid request body"
// @Failure      500                   {string}  string "Internal Server Error"
// @Router       /auth/logout [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.RefreshToken != "" {
		if _, err := s.store.DeleteSessionByRefreshToken(r.Context(), req.RefreshToken); err != nil {
			s.logger.Error("failed to revoke refresh token", zap.Error(err))
			http.Error(w, "Failed to log out", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Current session
// @Description  Returns the user the access token was issued to.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "User not found"
// @Router       /auth/session [get]
func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.GetCurrentUserHandler(w, r)
}

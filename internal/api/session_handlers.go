package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"parcelview/internal/models"
	"parcelview/internal/useragent"
)

// @Summary      List signed-in devices
// @Description  Lists the caller's live device sessions with the parsed browser, OS and device type. The session that issued the caller's access token is flagged as current.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.DeviceSession
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /sessions [get]
func (s *Server) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessions, err := s.store.ListSessionsForUser(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("failed to list sessions", zap.String("user_id", claims.UserID.String()), zap.Error(err))
		http.Error(w, "Failed to retrieve sessions", http.StatusInternalServerError)
		return
	}

	devices := make([]models.DeviceSession, 0, len(sessions))
	for _, session := range sessions {
		devices = append(devices, models.DeviceSession{
			Session: session,
			Device:  useragent.Parse(session.UserAgent),
			Current: claims.SessionID != uuid.Nil && session.ID == claims.SessionID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// @Summary      Sign out a device
// @Description  Revokes one of the caller's device sessions. Targeting another user's session answers 404 and is recorded as an access_denied event.
// @Tags         sessions
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "ID of the session to terminate" format(uuid)
// @Success      204        {null}    nil     "No Content"
// @Failure      400        {string}  string "Invalid session ID format"
// @Failure      401        {string}  string "Unauthorized"
// @Failure      404        {string}  string "Session not found"
// @Failure      500        {string}  string "Internal Server Error"
// @Router       /sessions/{sessionId} [delete]
func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return
	}

	deleted, err := s.store.DeleteSessionByID(r.Context(), sessionID, claims.UserID)
	if err != nil {
		s.logger.Error("failed to delete session", zap.String("session_id", sessionID.String()), zap.Error(err))
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	if deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	owner, found, err := s.store.GetSessionOwner(r.Context(), sessionID)
	if err != nil {
		s.logger.Warn("session owner lookup failed", zap.String("session_id", sessionID.String()), zap.Error(err))
	}
	if found && owner != claims.UserID {
		s.logger.Warn("attempt to revoke another user's session",
			zap.String("email", claims.Email),
			zap.String("session_id", sessionID.String()))
		s.recordDenial(r, claims.Email, reasonForeignSession)
	}

	// same answer as a missing session so ids of other users are not confirmed
	http.Error(w, "Session not found", http.StatusNotFound)
}

// @Summary      Sign out everywhere
// @Description  Revokes all of the caller's device sessions. With keep_current=true the session behind the caller's access token survives.
// @Tags         sessions
// @Security     BearerAuth
// @Param        keep_current  query     bool    false  "Keep the calling device signed in"
// @Success      204           {null}    nil     "No Content"
// @Failure      400           {string}  string "Invalid keep_current value"
// @Failure      401           {string}  string "Unauthorized"
// @Failure      500           {string}  string "Internal Server Error"
// @Router       /sessions/terminate_all [post]
func (s *Server) TerminateAllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	keepCurrent := false
	if raw := r.URL.Query().Get("keep_current"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid keep_current value", http.StatusBadRequest)
			return
		}
		keepCurrent = v
	}

	var err error
	if keepCurrent && claims.SessionID != uuid.Nil {
		var removed int64
		removed, err = s.store.DeleteOtherSessionsForUser(r.Context(), claims.UserID, claims.SessionID)
		if err == nil {
			s.logger.Info("signed out other devices", zap.String("user_id", claims.UserID.String()), zap.Int64("removed", removed))
		}
	} else {
		err = s.store.DeleteAllSessionsForUser(r.Context(), claims.UserID)
	}
	if err != nil {
		s.logger.Error("failed to terminate sessions", zap.String("user_id", claims.UserID.String()), zap.Error(err))
		http.Error(w, "Failed to terminate sessions", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

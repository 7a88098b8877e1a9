package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"parcelview/internal/database"
	"parcelview/internal/models"
)

// @Summary      List access logs
// @Description  Returns recorded access events, newest first. Admin only.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        event_type  query     string  false  "Filter by event type" Enums(login, logout, session_refresh, access_denied)
// @Param        email       query     string  false  "Case-insensitive email substring"
// @Param        limit       query     int     false  "Number of items to return" default(100)
// @Param        offset      query     int     false  "Offset for pagination" default(0)
// @Success      200         {array}   models.AccessEvent
// @Failure      400         {string}  string "Invalid event_type"
// @Failure      401         {string}  string "Unauthorized"
// @Failure      403         {string}  string "Admin role required"
// @Failure      500         {string}  string "Internal Server Error"
// @Router       /admin/access-logs [get]
func (s *Server) ListAccessLogsHandler(w http.ResponseWriter, r *http.Request) {
	eventType := models.EventType(r.URL.Query().Get("event_type"))
	if eventType != "" && !eventType.Valid() {
		http.Error(w, "Invalid event_type", http.StatusBadRequest)
		return
	}
	limit, offset := parsePagination(r)

	events, err := s.store.ListAccessLogs(r.Context(), database.AccessLogFilter{
		EventType: eventType,
		Email:     r.URL.Query().Get("email"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		s.logger.Error("failed to list access logs", zap.Error(err))
		http.Error(w, "Failed to retrieve access logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// @Summary      List users
// @Description  Returns every account with its last successful login. Admin only.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items to return" default(100)
// @Param        offset  query     int  false  "Offset for pagination" default(0)
// @Success      200     {array}   models.User
// @Failure      401     {string}  string "Unauthorized"
// @Failure      403     {string}  string "Admin role required"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /admin/users [get]
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		http.Error(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

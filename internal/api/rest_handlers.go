package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"parcelview/internal/audit"
	"parcelview/internal/database"
	"parcelview/internal/models"
)

// @Summary      Insert a row
// @Description  Appends one row to a table. Only access_logs is exposed. Authenticated callers may insert rows for themselves or with a null user_id; anonymous callers only rows with a null user_id.
// @Tags         rest
// @Accept       json
// @Security     BearerAuth
// @Param        table  path      string              true  "Table name" Enums(access_logs)
// @Param        row    body      models.AccessEvent  true  "Row to insert"
// @Success      201    {null}    nil     "Created"
// @Failure      400    {string}  string "Invalid row"
// @Failure      401    {string}  string "Invalid or expired token"
// @Failure      403    {string}  string "Row violates row-level security policy"
// @Failure      404    {string}  string "Unknown table"
// @Failure      500    {string}  string "Internal Server Error"
// @Router       /rest/{table} [post]
func (s *Server) InsertRowHandler(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if table != audit.AccessLogsTable {
		http.Error(w, "Unknown table", http.StatusNotFound)
		return
	}

	var event models.AccessEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(event); err != nil {
		http.Error(w, "Invalid row: "+err.Error(), http.StatusBadRequest)
		return
	}

	claims := GetUserFromContext(r.Context())
	if event.UserID != nil && (claims == nil || *event.UserID != claims.UserID) {
		http.Error(w, "Row violates row-level security policy", http.StatusForbidden)
		return
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Insert(r.Context(), table, &event); err != nil {
		switch {
		case errors.Is(err, database.ErrUnknownUser):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Error("failed to insert row", zap.String("table", table), zap.Error(err))
			http.Error(w, "Failed to insert row", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"parcelview/internal/database"
)

type AddFavoriteRequest struct {
	County string  `json:"county" validate:"required" example:"Hillsborough"`
	Label  *string `json:"label,omitempty" validate:"omitempty,max=200" example:"North lot"`
}

// @Summary      Add a parcel to favorites
// @Description  Marks a parcel as a favorite for the current user.
// @Tags         favorites
// @Accept       json
// @Security     BearerAuth
// @Param        parcelId  path      string              true  "Parcel ID"
// @Param        request   body      AddFavoriteRequest  true  "Parcel details"
// @Success      204       {null}    nil     "No Content"
// @Failure      400       {string}  string "Invalid request body"
// @Failure      401       {string}  string "Unauthorized"
// @Failure      409       {string}  string "Conflict - Parcel is already in favorites"
// @Failure      500       {string}  string "Internal Server Error"
// @Router       /parcels/{parcelId}/favorite [post]
func (s *Server) AddFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	parcelID := strings.TrimSpace(chi.URLParam(r, "parcelId"))

	var req AddFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if parcelID == "" || s.validate.Struct(req) != nil {
		http.Error(w, "Parcel id and county are required", http.StatusBadRequest)
		return
	}

	err := s.store.AddFavorite(r.Context(), database.AddFavoriteParams{
		UserID:   claims.UserID,
		ParcelID: parcelID,
		County:   req.County,
		Label:    req.Label,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrFavoriteAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			s.logger.Error("failed to add favorite", zap.Error(err))
			http.Error(w, "Failed to add to favorites", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Remove a parcel from favorites
// @Description  Removes a parcel from the current user's list of favorites.
// @Tags         favorites
// @Security     BearerAuth
// @Param        parcelId  path      string  true  "Parcel ID"
// @Success      204       {null}    nil     "No Content"
// @Failure      401       {string}  string "Unauthorized"
// @Failure      500       {string}  string "Internal Server Error"
// @Router       /parcels/{parcelId}/favorite [delete]
func (s *Server) RemoveFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	parcelID := chi.URLParam(r, "parcelId")

	_, err := s.store.RemoveFavorite(r.Context(), claims.UserID, parcelID)
	if err != nil {
		http.Error(w, "Failed to remove from favorites", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      List favorite parcels
// @Description  Retrieves the parcels marked as favorite by the current user.
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items to return" default(100)
// @Param        offset  query     int  false  "Offset for pagination" default(0)
// @Success      200     {array}   models.FavoriteParcel
// @Failure      401     {string}  string "Unauthorized"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /favorites [get]
func (s *Server) ListFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	parcels, err := s.store.ListFavorites(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list favorites", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(parcels)
}

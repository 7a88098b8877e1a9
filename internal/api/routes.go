package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the /api/v1 surface. Process-level middleware and the
// metrics/swagger endpoints are added by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.HealthCheckHandler)

	r.Post("/auth/signup", s.SignupHandler)
	r.Post("/auth/login", s.LoginHandler)
	r.Post("/auth/refresh", s.RefreshTokenHandler)
	r.Post("/auth/logout", s.LogoutHandler)

	r.With(s.OptionalAuthMiddleware).Post("/rest/{table}", s.InsertRowHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/auth/session", s.GetSessionHandler)
		r.Get("/me", s.GetCurrentUserHandler)
		r.Get("/favorites", s.ListFavoritesHandler)
		r.Post("/parcels/{parcelId}/favorite", s.AddFavoriteHandler)
		r.Delete("/parcels/{parcelId}/favorite", s.RemoveFavoriteHandler)
		r.Get("/sessions", s.ListSessionsHandler)
		r.Delete("/sessions/{sessionId}", s.DeleteSessionHandler)
		r.Post("/sessions/terminate_all", s.TerminateAllSessionsHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.RequireAdmin)
			r.Get("/access-logs", s.ListAccessLogsHandler)
			r.Get("/users", s.ListUsersHandler)
			r.Get("/stream", s.ServeAdminStreamHandler)
		})
	})

	return r
}

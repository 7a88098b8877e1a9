package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"parcelview/internal/auth"
	"parcelview/internal/clientinfo"
	"parcelview/internal/metrics"
)

type contextKey string

const userContextKey = contextKey("user")

const (
	reasonAdminRequired  = "admin_required"
	reasonForeignSession = "foreign_session"
)

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so the token query parameter is accepted as well.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
		return "", false
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return "", false
	}
	return headerParts[1], true
}

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" && r.URL.Query().Get("token") == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware attaches claims when a valid token is present and
// lets anonymous requests through. A token that is present but invalid is
// still rejected.
func (s *Server) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		s.AuthMiddleware(next).ServeHTTP(w, r)
	})
}

// RequireAdmin must run after AuthMiddleware. Refusals are recorded as
// access_denied events.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r.Context())
		if claims.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		email := ""
		if claims != nil {
			email = claims.Email
		}
		s.logger.Warn("admin access denied",
			zap.String("email", email),
			zap.String("path", r.URL.Path))

		s.recordDenial(r, email, reasonAdminRequired)
		http.Error(w, "Admin role required", http.StatusForbidden)
	})
}

// recordDenial writes an access_denied row attributed to the request's
// client IP and user agent. It runs before the response is sent.
func (s *Server) recordDenial(r *http.Request, email, reason string) {
	if s.auditor == nil {
		return
	}
	probe := clientinfo.StaticProbe{Info: clientinfo.NewRequestProbe(r).Probe(r.Context())}
	s.auditor.WithProbe(probe).LogAccessDenied(r.Context(), email, reason)
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}

// ProxyHeaders folds forwarding headers into RemoteAddr only when the
// deployment sits behind a proxy that sets them. Otherwise RemoteAddr is the
// TCP peer and the headers are ignored.
func ProxyHeaders(trust bool) func(http.Handler) http.Handler {
	if trust {
		return middleware.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

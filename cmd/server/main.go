// @title           Parcel Viewer API
// @version         1.0
// @description     Authentication, access auditing and parcel favorites for the parcel viewer.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "parcelview/docs"
	"parcelview/internal/api"
	"parcelview/internal/audit"
	"parcelview/internal/clientinfo"
	"parcelview/internal/config"
	"parcelview/internal/database"
	"parcelview/internal/geoip"
	"parcelview/internal/logging"
	"parcelview/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config comes from the same file
		panic(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		logger.Fatal("cannot connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		logger.Fatal("cannot ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	wsHub := websocket.NewHub(logger.Named("stream"))
	go wsHub.Run()
	defer wsHub.Stop()

	store := database.NewStore(dbpool, wsHub)
	geo := geoip.NewResolver(cfg.Audit.GeoIPURL, cfg.Audit.Timeout, nil, logger.Named("geoip"))
	auditor := audit.New(clientinfo.StaticProbe{}, geo, store, logger.Named("audit"))
	server := api.NewServer(cfg, store, auditor, wsHub, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(api.ProxyHeaders(cfg.Server.TrustProxy))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.PublicURL+"/swagger/doc.json"),
	))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Parcel viewer API is running. Documentation at /swagger/index.html"))
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api/v1", server.Routes())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

package api

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"parcelview/internal/audit"
	"parcelview/internal/config"
	"parcelview/internal/database"
	"parcelview/internal/websocket"
)

type Server struct {
	config   *config.Config
	store    *database.Store
	auditor  *audit.Logger
	wsHub    *websocket.Hub
	logger   *zap.Logger
	validate *validator.Validate
}

func NewServer(cfg *config.Config, store *database.Store, auditor *audit.Logger, wsHub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:   cfg,
		store:    store,
		auditor:  auditor,
		wsHub:    wsHub,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

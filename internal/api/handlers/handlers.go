package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/config"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/entities"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/metrics"
	"github.com/frostdev-ops/fileflows-bridge/internal/websocket"
)

// Coordinator is the part of the snapshot coordinator the API serves.
type Coordinator interface {
	Snapshot() *coordinator.Snapshot
	Metrics() coordinator.Metrics
	Status() coordinator.Status
	Refresh(ctx context.Context) (*coordinator.Snapshot, error)
	Execute(ctx context.Context, cmd fileflows.Command) error
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg      *config.Config
	log      *logrus.Logger
	coord    Coordinator
	entities *entities.Service
	health   *metrics.HealthChecker
	wsHub    *websocket.Hub
}

// NewHandlers creates a new handlers instance. wsHub may be nil when the
// websocket surface is not served.
func NewHandlers(cfg *config.Config, logger *logrus.Logger, coord Coordinator, entitySvc *entities.Service, health *metrics.HealthChecker, wsHub *websocket.Hub) *Handlers {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if health == nil {
		health = metrics.NewHealthChecker()
	}
	return &Handlers{
		cfg:      cfg,
		log:      logger,
		coord:    coord,
		entities: entitySvc,
		health:   health,
		wsHub:    wsHub,
	}
}

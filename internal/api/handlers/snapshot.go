package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
)

const refreshTimeout = 90 * time.Second

func snapshotMeta(snap *coordinator.Snapshot, status coordinator.Status) gin.H {
	meta := gin.H{
		"tick":      snap.Tick(),
		"available": status.Available,
	}
	if !snap.FetchedAt().IsZero() {
		meta["fetched_at"] = snap.FetchedAt().Format(time.RFC3339)
		meta["age_seconds"] = int64(time.Since(snap.FetchedAt()).Seconds())
	}
	if status.LastError != "" {
		meta["last_error"] = status.LastError
	}
	return meta
}

// GetSnapshot returns the current snapshot with per-resource provenance.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	snap := h.coord.Snapshot()
	utils.SendSuccessWithMeta(c, snap, snapshotMeta(snap, h.coord.Status()))
}

// GetResource returns one resource of the current snapshot.
func (h *Handlers) GetResource(c *gin.Context) {
	resource := fileflows.Resource(c.Param("resource"))
	if _, ok := resource.Spec(); !ok {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrNotFound, "unknown resource: "+string(resource)))
		return
	}

	snap := h.coord.Snapshot()
	meta := snapshotMeta(snap, h.coord.Status())
	meta["source"] = snap.State(resource).Source

	utils.SendSuccessWithMeta(c, gin.H{
		"resource": resource,
		"value":    snap.Value(resource),
	}, meta)
}

// GetMetrics returns the metrics derived from the current snapshot.
func (h *Handlers) GetMetrics(c *gin.Context) {
	snap := h.coord.Snapshot()
	utils.SendSuccessWithMeta(c, h.coord.Metrics(), snapshotMeta(snap, h.coord.Status()))
}

// GetStatus returns the poll loop status.
func (h *Handlers) GetStatus(c *gin.Context) {
	utils.SendSuccess(c, h.coord.Status())
}

// Refresh waits for a tick, joining one already in flight.
func (h *Handlers) Refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.coord.Refresh(ctx)
	if err != nil {
		h.log.WithError(err).Warn("Manual refresh failed")
		switch {
		case errors.Is(err, coordinator.ErrStopped):
			utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrUnavailable, err.Error()))
			return
		case ctx.Err() != nil:
			utils.SendAppError(c, apperrors.New(http.StatusGatewayTimeout, "Refresh timed out"))
			return
		}
		utils.SendAppError(c, apperrors.FromFileFlows(err))
		return
	}

	status := h.coord.Status()
	utils.SendSuccessWithMeta(c, gin.H{
		"tick":       snap.Tick(),
		"fetched_at": snap.FetchedAt().Format(time.RFC3339),
		"available":  status.Available,
		"metrics":    snap.Metrics(),
	}, snapshotMeta(snap, status))
}

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/api/middleware"
	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
)

const commandTimeout = 30 * time.Second

// CommandRequest is the optional body of a control command.
type CommandRequest struct {
	ID      string   `json:"id"`
	IDs     []string `json:"ids"`
	Minutes int      `json:"minutes"`
}

func lookupCommand(name string) (fileflows.CommandName, bool) {
	for _, cmd := range fileflows.CommandNames() {
		if string(cmd) == name {
			return cmd, true
		}
	}
	return "", false
}

// ListCommands returns the names accepted by ExecuteCommand.
func (h *Handlers) ListCommands(c *gin.Context) {
	names := fileflows.CommandNames()
	utils.SendSuccessWithMeta(c, names, gin.H{"count": len(names)})
}

// ExecuteCommand runs a named control command against FileFlows.
func (h *Handlers) ExecuteCommand(c *gin.Context) {
	name, ok := lookupCommand(c.Param("command"))
	if !ok {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrUnknownCommand, c.Param("command")))
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrBadRequest, "Invalid request body: "+err.Error()))
		return
	}

	cmd := fileflows.Command{Name: name, ID: req.ID, IDs: req.IDs, Minutes: req.Minutes}
	if err := cmd.Validate(); err != nil {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrBadRequest, err.Error()))
		return
	}

	requestID := middleware.GetRequestID(c)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	start := time.Now()
	if err := h.coord.Execute(ctx, cmd); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"command":    name,
			"request_id": requestID,
		}).Warn("Control command rejected")
		utils.SendAppError(c, apperrors.FromFileFlows(err))
		return
	}

	c.JSON(http.StatusAccepted, utils.Response{
		Success: true,
		Data: gin.H{
			"command":     name,
			"request_id":  requestID,
			"executed_at": time.Now().UTC().Format(time.RFC3339),
			"duration_ms": time.Since(start).Milliseconds(),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

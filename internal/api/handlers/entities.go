package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/fileflows-bridge/internal/api/middleware"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/entities"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/types"
	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
)

// ActionRequest is the body of an entity action.
type ActionRequest struct {
	Action     string                 `json:"action" binding:"required"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// GetEntities lists the entities derived from the current snapshot
func (h *Handlers) GetEntities(c *gin.Context) {
	entityType := c.Query("type")
	availableOnly := c.Query("available_only") == "true"

	var list []types.PMAEntity
	if entityType != "" {
		list = h.entities.GetByType(types.PMAEntityType(entityType))
	} else {
		list = h.entities.GetAll()
	}

	result := make([]types.PMAEntity, 0, len(list))
	typeCounts := make(map[string]int)
	for _, e := range list {
		if availableOnly && !e.IsAvailable() {
			continue
		}
		result = append(result, e)
		typeCounts[string(e.GetType())]++
	}

	meta := gin.H{
		"count":          len(result),
		"available_only": availableOnly,
		"by_type":        typeCounts,
	}
	if entityType != "" {
		meta["type"] = entityType
	}

	utils.SendSuccessWithMeta(c, result, meta)
}

// GetEntity retrieves a specific entity
func (h *Handlers) GetEntity(c *gin.Context) {
	entityID := c.Param("id")

	entity, err := h.entities.GetByID(entityID)
	if err != nil {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrNotFound, "Entity not found: "+entityID))
		return
	}

	utils.SendSuccess(c, entity)
}

// ExecuteEntityAction routes an action to the control command behind the entity
func (h *Handlers) ExecuteEntityAction(c *gin.Context) {
	entityID := c.Param("id")

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrBadRequest, "Invalid request body: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	action := types.PMAControlAction{
		EntityID:   entityID,
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		Parameters: req.Parameters,
		Context: &types.PMAContext{
			ID:        middleware.GetRequestID(c),
			Source:    "api",
			Timestamp: time.Now(),
		},
	}

	result, err := h.entities.ExecuteAction(ctx, action)
	switch {
	case err == nil:
		utils.SendSuccess(c, result)
	case errors.Is(err, entities.ErrEntityNotFound):
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrNotFound, "Entity not found: "+entityID))
	case errors.Is(err, entities.ErrUnsupportedAction):
		c.JSON(http.StatusBadRequest, utils.Response{
			Success:   false,
			Data:      result,
			Error:     err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	default:
		appErr := apperrors.FromFileFlows(err)
		c.JSON(appErr.Code, utils.Response{
			Success:   false,
			Data:      result,
			Error:     appErr.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

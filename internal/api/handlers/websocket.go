package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/frostdev-ops/fileflows-bridge/pkg/errors"
	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
)

// GetWebSocketStats returns hub statistics and the connected clients.
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	if h.wsHub == nil {
		utils.SendAppError(c, apperrors.WithDetails(apperrors.ErrNotFound, "websocket hub is not running"))
		return
	}

	clients := h.wsHub.GetAllClients()
	list := make([]gin.H, 0, len(clients))
	for _, client := range clients {
		list = append(list, gin.H{
			"id":     client.ID,
			"topics": client.Topics(),
		})
	}

	utils.SendSuccess(c, gin.H{
		"stats":   h.wsHub.GetStats(),
		"clients": list,
	})
}

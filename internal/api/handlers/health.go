package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
	"github.com/frostdev-ops/fileflows-bridge/pkg/version"
)

// Health reports liveness. The process answers 200 while it runs; the
// coordinator check only shapes the reported status.
func (h *Handlers) Health(c *gin.Context) {
	report := h.health.GetOverallHealth()
	status := h.coord.Status()

	health := gin.H{
		"status":     report.Status,
		"message":    report.Message,
		"timestamp":  time.Now().Format(time.RFC3339),
		"service":    version.Name,
		"version":    version.GetVersion(),
		"available":  status.Available,
		"components": report.Components,
	}
	if !status.LastSuccess.IsZero() {
		health["last_success"] = status.LastSuccess.Format(time.RFC3339)
	}

	utils.SendSuccess(c, health)
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthController handles liveness checks.
type HealthController struct{}

// NewHealthController creates a new HealthController.
func NewHealthController() *HealthController {
	return &HealthController{}
}

// Health responds to health check requests.
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

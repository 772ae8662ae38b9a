package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigcal/utils"
)

// HealthHandler reports the latest backend snapshot. A degraded backend
// answers 503 so load balancers stop routing here.
func HealthHandler(m *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		snap := m.Status()
		code := http.StatusOK
		if snap.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, snap)
	}
}

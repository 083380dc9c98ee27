package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qvantel/synapse/internal/logger"
)

// StartupCheck godoc
// @Summary Kubernetes startup probe endpoint
// @Description Will return a 200 as long as the API is up
// @Produce plain
// @Success 200 {string} string
// @Router /health/startup [get]
func StartupCheck(c *gin.Context) {
	c.String(http.StatusOK, "UP")
}

// ReadinessCheck godoc
// @Summary Kubernetes readiness probe endpoint
// @Description Will return a 200 when both the net param store and the sample store can be reached
// @Produce plain
// @Success 200 {string} string
// @Failure 503 {string} string
// @Router /health/ready [get]
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if _, _, err := h.NPS.List(0, 1, "*"); err != nil {
		logger.Warning("Net param store is unreachable (" + err.Error() + ")")
		c.String(http.StatusServiceUnavailable, "DOWN")
		return
	}
	if _, err := h.SS.ListDatasets(); err != nil {
		logger.Warning("Sample store is unreachable (" + err.Error() + ")")
		c.String(http.StatusServiceUnavailable, "DOWN")
		return
	}
	c.String(http.StatusOK, "READY")
}

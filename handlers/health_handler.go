package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/types"
)

type HealthHandler struct {
	healthService HealthServiceInterface
}

func NewHealthHandler(healthService HealthServiceInterface) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// LivenessCheck handles the liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ReadinessCheck handles the readiness probe. Only the record store gates
// readiness.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.healthService.CheckReadiness(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, types.StatusResponse{Status: string(types.HealthStatusDown)})
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Status: string(types.HealthStatusUp)})
}

// DetailedHealth godoc
// @Summary      Service health
// @Description  Reports the record store, Redis and live session count
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthCheck
// @Failure      503  {object}  types.HealthCheck
// @Router       /health [get]
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	health := h.healthService.CheckHealth(c.Request.Context())
	if health.Status == types.HealthStatusDown {
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	c.JSON(http.StatusOK, health)
}

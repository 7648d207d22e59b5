package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

// HealthHandler reports liveness plus the number of pending relay tasks.
type HealthHandler struct {
	activeTasks func() int
}

func NewHealthHandler(activeTasks func() int) IHealthHandler {
	return &HealthHandler{activeTasks: activeTasks}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.activeTasks != nil {
		body["active_tasks"] = h.activeTasks()
	}
	c.JSON(http.StatusOK, body)
}

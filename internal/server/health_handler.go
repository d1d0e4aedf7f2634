package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/finsentiment/internal/worker"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	modelName    string
	modelHealthy *atomic.Bool
	cache        Pinger
	pool         *worker.Pool
}

func NewHealthHandler(modelName string, modelHealthy *atomic.Bool, cache Pinger, pool *worker.Pool) *HealthHandler {
	return &HealthHandler{
		modelName:    modelName,
		modelHealthy: modelHealthy,
		cache:        cache,
		pool:         pool,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Model      string            `json:"model"`
	QueueDepth int               `json:"queue_depth"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	healthy := true

	if h.modelHealthy == nil || h.modelHealthy.Load() {
		components["model"] = "ok"
	} else {
		components["model"] = "unhealthy"
		healthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			components["cache"] = "error: " + err.Error()
			healthy = false
		} else {
			components["cache"] = "ok"
		}
	} else {
		components["cache"] = "not configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthStatus{
		Status:     status,
		Model:      h.modelName,
		QueueDepth: h.pool.QueueDepth(),
		Components: components,
	})
}

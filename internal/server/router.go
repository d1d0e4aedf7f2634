package server

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacesedan/finsentiment/internal/monitoring"
	"github.com/spacesedan/finsentiment/internal/worker"
)

// Dependencies are shared by every request. Metrics, Gatherer, Cache and
// ModelHealthy are optional.
type Dependencies struct {
	Analyzer     Analyzer
	ModelName    string
	Pool         *worker.Pool
	Timeout      time.Duration
	Metrics      *monitoring.Metrics
	Gatherer     prometheus.Gatherer
	Cache        Pinger
	ModelHealthy *atomic.Bool
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(RequestID())
	router.Use(Logger())
	router.Use(Recovery())
	if deps.Metrics != nil {
		router.Use(Metrics(deps.Metrics))
	}

	sentimentHandler := NewSentimentHandler(deps.Analyzer, deps.Pool, deps.Timeout, deps.Metrics)
	healthHandler := NewHealthHandler(deps.ModelName, deps.ModelHealthy, deps.Cache, deps.Pool)

	router.POST("/analyze", sentimentHandler.Analyze)
	router.GET("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

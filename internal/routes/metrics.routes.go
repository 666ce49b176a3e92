package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nabz/internal/controllers"
	"nabz/internal/middleware"
)

// RegisterMonitorRoutes wires the monitoring query surface. Everything
// under /metrics requires a valid token; /healthz stays open for probes.
func RegisterMonitorRoutes(r *gin.Engine, mc *controllers.MonitorController, logger *zap.Logger) {
	r.GET("/healthz", mc.Healthz)

	metrics := r.Group("/metrics", middleware.AuthMiddleware(logger))
	{
		metrics.GET("/current", mc.GetCurrentMetrics)
		metrics.GET("/history", mc.GetMetricsHistory)
		metrics.GET("/alerts", mc.GetActiveAlerts)
		metrics.POST("/alerts/:id/acknowledge", mc.AcknowledgeAlert)
		metrics.GET("/dashboard", mc.GetDashboard)
	}
}

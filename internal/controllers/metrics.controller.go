package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nabz/internal/services"
)

// MonitorController serves the monitor's synchronous query surface.
type MonitorController struct {
	monitor *services.Monitor
}

// NewMonitorController binds the handlers to a monitor instance.
func NewMonitorController(monitor *services.Monitor) *MonitorController {
	return &MonitorController{monitor: monitor}
}

// GetCurrentMetrics returns the latest snapshot
func (mc *MonitorController) GetCurrentMetrics(c *gin.Context) {
	snap, ok := mc.monitor.CurrentMetrics()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot collected yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetMetricsHistory returns snapshots from the last N minutes, ascending
// Query params: minutes=60 (default)
func (mc *MonitorController) GetMetricsHistory(c *gin.Context) {
	minutesStr := c.DefaultQuery("minutes", "60")
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil || minutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minutes parameter"})
		return
	}

	history := mc.monitor.MetricsHistory(minutes)
	c.JSON(http.StatusOK, gin.H{
		"minutes": minutes,
		"count":   len(history),
		"data":    history,
	})
}

// GetActiveAlerts returns all unacknowledged alerts
func (mc *MonitorController) GetActiveAlerts(c *gin.Context) {
	alerts := mc.monitor.ActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"count": len(alerts),
		"data":  alerts,
	})
}

// AcknowledgeAlert marks an alert as handled. Unknown ids succeed too: the
// operation is idempotent.
func (mc *MonitorController) AcknowledgeAlert(c *gin.Context) {
	mc.monitor.AcknowledgeAlert(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// GetDashboard returns the dashboard composite: current snapshot, recent
// alerts, health score, trends, and bottlenecks
func (mc *MonitorController) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, mc.monitor.DashboardData())
}

// Healthz is an unauthenticated liveness endpoint
func (mc *MonitorController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

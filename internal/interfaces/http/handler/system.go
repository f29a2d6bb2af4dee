package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/shopcore/internal/infrastructure/logger"
	"github.com/erp/shopcore/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// poolReporter is implemented by *persistence.Database
type poolReporter interface {
	PoolStats() (persistence.PoolStats, error)
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	startTime time.Time
	now       func() time.Time
}

// NewSystemHandler takes a nil db when no database is configured; health then
// reports liveness only.
func NewSystemHandler(name, version string, db Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Database string `json:"database" example:"ok"`

	Pool *persistence.PoolStats `json:"pool,omitempty"`
}

// Health godoc
// @ID           health
// @Summary      Liveness and database reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Time: h.stamp()}
	resp.Database, resp.Pool = h.probe(c)

	code := http.StatusOK
	if resp.Database == "error" {
		resp.Status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// probe pings the database and, when it answers, reads its pool stats.
func (h *SystemHandler) probe(c *gin.Context) (string, *persistence.PoolStats) {
	if h.db == nil {
		return "unconfigured", nil
	}
	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		return "error", nil
	}
	pr, ok := h.db.(poolReporter)
	if !ok {
		return "ok", nil
	}
	stats, err := pr.PoolStats()
	if err != nil {
		return "ok", nil
	}
	return "ok", &stats
}

func (h *SystemHandler) stamp() string { return h.now().UTC().Format(time.RFC3339) }

// SystemInfoResponse is the body of GET /system/info
type SystemInfoResponse struct {
	Name      string `json:"name" example:"shopcore"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    h.now().Sub(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse is the body of GET /system/ping
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: h.stamp(),
	})
}

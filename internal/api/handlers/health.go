package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tradepulse/tradepulse-go/internal/database"
)

var startTime = time.Now()

// HealthHandler serves the process status page: per-dependency health plus
// host resource usage.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Resources *ResourceSnapshot `json:"resources,omitempty"`
}

// ResourceSnapshot is the host usage block of the status page.
type ResourceSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			services["database"] = "unhealthy: " + err.Error()
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		services["telegram"] = "not configured"
	} else {
		services["telegram"] = "healthy"
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
		Uptime:    time.Since(startTime).String(),
		Resources: resourceSnapshot(),
	}

	code := http.StatusOK
	if overallStatus != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

// resourceSnapshot collects best-effort host stats; nil when unavailable.
func resourceSnapshot() *ResourceSnapshot {
	snapshot := &ResourceSnapshot{}

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		snapshot.CPUPercent = percentages[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return snapshot
	}
	snapshot.MemoryPercent = vm.UsedPercent
	snapshot.MemoryUsedMB = vm.Used / 1024 / 1024
	return snapshot
}

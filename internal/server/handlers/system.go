package handlers

import (
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/qtremors/tremors-music/internal/config"
)

// System reports host resource usage, mainly so clients can show why a
// scan is slow.
type System struct {
	cfg *config.Config
}

// NewSystem creates the system handler group.
func NewSystem(cfg *config.Config) *System {
	return &System{cfg: cfg}
}

// RegisterRoutes registers the system routes.
func (h *System) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/system/status", h.status)
}

func (h *System) status(c *gin.Context) {
	status := gin.H{
		"num_cpu":    runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"time":       time.Now().UTC(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		status["memory_percent"] = vmem.UsedPercent
		status["memory_total"] = vmem.Total
	}

	dataDir := filepath.Dir(h.cfg.Database.Path)
	if dataDir == "" {
		dataDir = "."
	}
	if usage, err := disk.Usage(dataDir); err == nil {
		status["disk_percent"] = usage.UsedPercent
		status["disk_free"] = usage.Free
	}

	c.JSON(http.StatusOK, status)
}

package web

import (
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// statusResponse describes the tracker's runtime state for /api/status.
type statusResponse struct {
	Device             string  `json:"device"`
	UptimeSeconds      int64   `json:"uptime_seconds"`
	PollIntervalSec    float64 `json:"poll_interval_seconds"`
	SampleCount        int     `json:"sample_count"`
	KnownDevices       int     `json:"known_devices"`
	ProcessMemoryBytes uint64  `json:"process_memory_bytes,omitempty"`
	HostMemoryUsedPct  float64 `json:"host_memory_used_percent,omitempty"`
}

// handleStatus reports uptime, sample counts and process/host memory usage.
// The gopsutil lookups are best effort; a failure only omits the field.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := statusResponse{
		Device:          h.deviceName,
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
		PollIntervalSec: h.interval.Seconds(),
		SampleCount:     h.store.Len(),
		KnownDevices:    h.registry.Count(),
	}

	if memStats, err := mem.VirtualMemory(); err == nil {
		status.HostMemoryUsedPct = memStats.UsedPercent
	} else {
		h.logger.Debug().Err(err).Msg("Failed to retrieve host memory statistics")
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			status.ProcessMemoryBytes = memInfo.RSS
		}
	}

	writeJSON(w, status, h.logger)
}

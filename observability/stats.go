// Package observability exposes runtime counters of the delivery engine.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// DeliveryStats aggregates engine counters since process start. All
// increments are atomic; Snapshot is safe to call from a serving goroutine.
type DeliveryStats struct {
	log *slog.Logger

	messagesSent    uint64
	conflictRetries uint64
	readsCleared    uint64
	searchQueries   uint64

	startedAt time.Time
}

// StatsSnapshot is the wire form served by the stats endpoint.
type StatsSnapshot struct {
	MessagesSent    uint64  `json:"messages_sent"`
	ConflictRetries uint64  `json:"conflict_retries"`
	ReadsCleared    uint64  `json:"reads_cleared"`
	SearchQueries   uint64  `json:"search_queries"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	NumGC           uint32  `json:"num_gc"`
	CPUPercent      float64 `json:"cpu_percent"`
	RSSMb           uint64  `json:"rss_mb"`
}

func NewDeliveryStats(log *slog.Logger) *DeliveryStats {
	return &DeliveryStats{log: log, startedAt: time.Now()}
}

func (s *DeliveryStats) MessageSent() {
	atomic.AddUint64(&s.messagesSent, 1)
}

func (s *DeliveryStats) ConflictRetried() {
	atomic.AddUint64(&s.conflictRetries, 1)
}

func (s *DeliveryStats) ReadsCleared(n int) {
	if n > 0 {
		atomic.AddUint64(&s.readsCleared, uint64(n))
	}
}

func (s *DeliveryStats) SearchRan() {
	atomic.AddUint64(&s.searchQueries, 1)
}

// Snapshot merges engine counters with Go runtime and OS process figures.
// Process-level probes are best effort: a failed gopsutil call leaves the
// field at zero rather than failing the endpoint.
func (s *DeliveryStats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		MessagesSent:    atomic.LoadUint64(&s.messagesSent),
		ConflictRetries: atomic.LoadUint64(&s.conflictRetries),
		ReadsCleared:    atomic.LoadUint64(&s.readsCleared),
		SearchQueries:   atomic.LoadUint64(&s.searchQueries),
		UptimeSeconds:   time.Since(s.startedAt).Seconds(),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	snap.AllocMemMb = m.Alloc / 1024 / 1024
	snap.NumGC = m.NumGC

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.log.Debug("process probe unavailable", "err", err)
		return snap
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		snap.RSSMb = mem.RSS / 1024 / 1024
	}
	return snap
}

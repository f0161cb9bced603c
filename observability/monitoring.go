// Package observability collects chat counters and process health for the /health endpoint.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringStats is the snapshot served to operators.
type MonitoringStats struct {
	ParticipantsRegistered uint64 `json:"participants_registered"`
	ParticipantsEvicted    uint64 `json:"participants_evicted"`
	MessagesPosted         uint64 `json:"messages_posted"`
	MessagesCensored       uint64 `json:"messages_censored"`
	SweepFailures          uint64 `json:"sweep_failures"`
	WorkerRestarts         uint64 `json:"worker_restarts"`
	WorkerPanics           uint64 `json:"worker_panics"`

	Pid         int32   `json:"pid"`
	RamBytes    uint64  `json:"ram_bytes"`
	CpuPercent  float64 `json:"cpu_percent"`
	AllocMemMb  uint64  `json:"alloc_mem_mb"`
	NumGC       uint32  `json:"num_gc"`
	Goroutines  int     `json:"goroutines"`
	RefreshedAt string  `json:"refreshed_at"`
}

// MonitoringManager aggregates counters updated by the chat components.
// All methods are safe on a nil receiver so components can run unmonitored.
type MonitoringManager struct {
	log      *slog.Logger
	interval time.Duration
	mu       sync.RWMutex
	latest   MonitoringStats

	participantsRegistered uint64
	participantsEvicted    uint64
	messagesPosted         uint64
	messagesCensored       uint64
	sweepFailures          uint64
	workerRestarts         uint64
	workerPanics           uint64
}

func NewMonitoringManager(log *slog.Logger, interval time.Duration) *MonitoringManager {
	return &MonitoringManager{log: log, interval: interval}
}

func (mm *MonitoringManager) IncrParticipantsRegistered() {
	if mm != nil {
		atomic.AddUint64(&mm.participantsRegistered, 1)
	}
}

func (mm *MonitoringManager) IncrParticipantsEvicted(n int) {
	if mm != nil {
		atomic.AddUint64(&mm.participantsEvicted, uint64(n))
	}
}

func (mm *MonitoringManager) IncrMessagesPosted() {
	if mm != nil {
		atomic.AddUint64(&mm.messagesPosted, 1)
	}
}

func (mm *MonitoringManager) IncrMessagesCensored() {
	if mm != nil {
		atomic.AddUint64(&mm.messagesCensored, 1)
	}
}

func (mm *MonitoringManager) IncrSweepFailures() {
	if mm != nil {
		atomic.AddUint64(&mm.sweepFailures, 1)
	}
}

// IncrWorkerRestarts records a supervised restart, panicked tells whether
// the worker crashed with a panic rather than an error.
func (mm *MonitoringManager) IncrWorkerRestarts(panicked bool) {
	if mm == nil {
		return
	}
	atomic.AddUint64(&mm.workerRestarts, 1)
	if panicked {
		atomic.AddUint64(&mm.workerPanics, 1)
	}
}

// Run refreshes the process statistics on every tick until ctx is canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	mm.refresh(p)

	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mm.refresh(p)
		}
	}
}

func (mm *MonitoringManager) refresh(p *process.Process) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latest.Pid = p.Pid
	if memInfo, err := p.MemoryInfo(); err == nil {
		mm.latest.RamBytes = memInfo.RSS
	} else {
		mm.log.Warn("Failed to collect memory stats", "error", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		mm.latest.CpuPercent = cpu
	} else {
		mm.log.Warn("Failed to collect cpu stats", "error", err)
	}
	mm.latest.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latest.NumGC = m.NumGC
	mm.latest.Goroutines = runtime.NumGoroutine()
	mm.latest.RefreshedAt = time.Now().UTC().Format(time.RFC3339)
}

// GetLatest returns the counters merged with the last process snapshot.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	if mm == nil {
		return MonitoringStats{}
	}
	mm.mu.RLock()
	stats := mm.latest
	mm.mu.RUnlock()

	stats.ParticipantsRegistered = atomic.LoadUint64(&mm.participantsRegistered)
	stats.ParticipantsEvicted = atomic.LoadUint64(&mm.participantsEvicted)
	stats.MessagesPosted = atomic.LoadUint64(&mm.messagesPosted)
	stats.MessagesCensored = atomic.LoadUint64(&mm.messagesCensored)
	stats.SweepFailures = atomic.LoadUint64(&mm.sweepFailures)
	stats.WorkerRestarts = atomic.LoadUint64(&mm.workerRestarts)
	stats.WorkerPanics = atomic.LoadUint64(&mm.workerPanics)
	return stats
}

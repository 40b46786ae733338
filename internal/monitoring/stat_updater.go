package monitoring

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a point-in-time sample of this process and its host.
type ProcessStats struct {
	CPUPercent        float64   `json:"cpuPercent"`
	MemoryRSS         uint64    `json:"memoryRss"`
	HostMemoryPercent float64   `json:"hostMemoryPercent"`
	Goroutines        int       `json:"goroutines"`
	SampledAt         time.Time `json:"sampledAt"`
}

// StatUpdater periodically samples process statistics for the health endpoint.
// CPU usage is measured between consecutive samples, so it needs a running loop.
type StatUpdater struct {
	proc     *process.Process
	interval time.Duration
	started  time.Time

	mu    sync.RWMutex
	stats ProcessStats

	done     chan struct{}
	stopOnce sync.Once
}

// NewStatUpdater creates a StatUpdater for the current process.
func NewStatUpdater(interval time.Duration) (*StatUpdater, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &StatUpdater{
		proc:     proc,
		interval: interval,
		started:  time.Now(),
		done:     make(chan struct{}),
	}, nil
}

// Run starts the periodic sampling. It returns after Stop.
func (su *StatUpdater) Run() {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.Sample()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater")
			return
		case <-ticker.C:
			su.Sample()
		}
	}
}

// Stop halts the periodic sampling.
func (su *StatUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}

// Sample takes a new measurement. Fields that cannot be read keep their last value.
func (su *StatUpdater) Sample() {
	su.mu.Lock()
	defer su.mu.Unlock()

	if cpu, err := su.proc.Percent(0); err == nil {
		su.stats.CPUPercent = cpu
	} else {
		log.Debug().Err(err).Msg("StatUpdater: failed to read cpu usage")
	}
	if info, err := su.proc.MemoryInfo(); err == nil {
		su.stats.MemoryRSS = info.RSS
	} else {
		log.Debug().Err(err).Msg("StatUpdater: failed to read process memory")
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		su.stats.HostMemoryPercent = vm.UsedPercent
	}
	su.stats.Goroutines = runtime.NumGoroutine()
	su.stats.SampledAt = time.Now().UTC()
}

// Snapshot returns the latest sample.
func (su *StatUpdater) Snapshot() ProcessStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.stats
}

// Uptime reports how long the updater's process has been serving.
func (su *StatUpdater) Uptime() time.Duration {
	return time.Since(su.started)
}

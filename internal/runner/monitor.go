package runner

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// sampleInterval is how often the monitor polls the child process.
const sampleInterval = 2 * time.Second

// ProcessStats is a snapshot of a monitored child process.
type ProcessStats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryRSSMB float64 `json:"memory_rss_mb"`
	PeakRSSMB   float64 `json:"peak_rss_mb"`
}

// processMonitor samples CPU and RSS of a running child process. Samples
// are best-effort; a child that exits mid-sample just stops the loop.
type processMonitor struct {
	proc *process.Process

	mu    sync.Mutex
	stats ProcessStats

	stop chan struct{}
	done chan struct{}
}

// newProcessMonitor starts monitoring the given pid. Returns nil when the
// process cannot be inspected (already gone, or unsupported platform).
func newProcessMonitor(pid int) *processMonitor {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	pm := &processMonitor{
		proc: proc,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go pm.loop()
	return pm
}

func (pm *processMonitor) loop() {
	defer close(pm.done)

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pm.stop:
			return
		case <-ticker.C:
			pm.sample()
		}
	}
}

func (pm *processMonitor) sample() {
	cpu, err := pm.proc.CPUPercent()
	if err != nil {
		return
	}
	mem, err := pm.proc.MemoryInfo()
	if err != nil || mem == nil {
		return
	}

	rssMB := float64(mem.RSS) / (1024 * 1024)

	pm.mu.Lock()
	pm.stats.CPUPercent = cpu
	pm.stats.MemoryRSSMB = rssMB
	if rssMB > pm.stats.PeakRSSMB {
		pm.stats.PeakRSSMB = rssMB
	}
	pm.mu.Unlock()
}

// Stop halts sampling and returns the final stats.
func (pm *processMonitor) Stop() ProcessStats {
	close(pm.stop)
	<-pm.done

	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stats
}

// Package sampler reads per-process CPU and memory usage from /proc,
// wrapping prometheus/procfs instead of hand-parsing
// /proc/<pid>/stat and /proc/<pid>/status.
package sampler

import (
	"fmt"
	"time"

	"github.com/prometheus/procfs"
)

// Sample is one resource-usage reading for a process.
type Sample struct {
	CPUPercent float64 // percentage of one core consumed since the last sample
	MemoryKB   float64 // resident set size, kilobytes
}

// Sampler caches the previous CPU-time reading per PID so CPUPercent
// can be computed as a delta over wall-clock time between calls.
type Sampler struct {
	fs   procfs.FS
	prev map[int32]prevReading
}

type prevReading struct {
	cpuTime float64
	at      time.Time
}

// New opens the default /proc mount.
func New() (*Sampler, error) {
	fs, err := procfs.NewFS("/proc")
	if err != nil {
		return nil, fmt.Errorf("open /proc: %w", err)
	}
	return &Sampler{fs: fs, prev: make(map[int32]prevReading)}, nil
}

// Sample reads current CPU% and RSS for pid. The first call for a given
// PID cannot compute a CPU delta yet and reports 0%.
func (s *Sampler) Sample(pid int32) (Sample, error) {
	proc, err := s.fs.Proc(int(pid))
	if err != nil {
		return Sample{}, fmt.Errorf("open /proc/%d: %w", pid, err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return Sample{}, fmt.Errorf("read /proc/%d/stat: %w", pid, err)
	}

	now := time.Now()
	cpuTime := stat.CPUTime()

	var cpuPct float64
	if prev, ok := s.prev[pid]; ok {
		elapsed := now.Sub(prev.at).Seconds()
		if elapsed > 0 {
			cpuPct = 100 * (cpuTime - prev.cpuTime) / elapsed
			if cpuPct < 0 {
				cpuPct = 0
			}
		}
	}
	s.prev[pid] = prevReading{cpuTime: cpuTime, at: now}

	memKB := float64(stat.ResidentMemory()) / 1024

	return Sample{CPUPercent: cpuPct, MemoryKB: memKB}, nil
}

// Forget drops any cached CPU-time reading for pid, called when a
// program is respawned under a new PID so the next sample doesn't
// compute a bogus delta against a different process's prior reading.
func (s *Sampler) Forget(pid int32) {
	delete(s.prev, pid)
}

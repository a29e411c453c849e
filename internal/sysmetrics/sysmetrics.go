// Package sysmetrics collects a point-in-time host snapshot (C7): CPU,
// memory, storage, OS, and GPU. Every sub-collector is independently
// resilient — a host-API error yields a zero-valued struct rather than
// propagating, per spec.md §4.7 — grounded on the teacher's
// engine/telemetry/metrics/otel_provider.go resource-detection pattern,
// backed here by github.com/shirou/gopsutil/v4 for the actual host probes.
package sysmetrics

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// CPUSnapshot is a zero-valued-on-error CPU reading.
type CPUSnapshot struct {
	Model        string  `json:"model"`
	Cores        int     `json:"cores"`
	UsagePercent float64 `json:"usage_percent"`
}

// MemorySnapshot is a zero-valued-on-error memory reading.
type MemorySnapshot struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// StorageSnapshot is a zero-valued-on-error disk reading for one path.
type StorageSnapshot struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// OSSnapshot is a zero-valued-on-error OS/runtime reading, cached after
// first collection since it cannot change within a run.
type OSSnapshot struct {
	OS             string `json:"os"`
	Version        string `json:"version"`
	Hostname       string `json:"hostname"`
	RuntimeVersion string `json:"runtime_version"`
}

// GPUSnapshot reports CUDA availability and, if present, basic identity.
type GPUSnapshot struct {
	CUDAAvailable bool   `json:"cuda_available"`
	Model         string `json:"model,omitempty"`
}

// SystemSnapshot is the full composed host reading.
type SystemSnapshot struct {
	CPU       CPUSnapshot     `json:"cpu"`
	Memory    MemorySnapshot  `json:"memory"`
	Storage   StorageSnapshot `json:"storage"`
	OS        OSSnapshot      `json:"os"`
	GPU       GPUSnapshot     `json:"gpu"`
	Timestamp time.Time       `json:"timestamp"`
}

// Collector takes point-in-time and, optionally, continuous snapshots.
type Collector struct {
	storagePath string

	osOnce sync.Once
	osInfo OSSnapshot

	monMu      sync.Mutex
	monStop    chan struct{}
	monDone    chan struct{}
	monRunning bool
	history    []SystemSnapshot
	historyMu  sync.Mutex
}

const maxHistory = 1000

// New constructs a Collector that reports storage usage for storagePath
// (typically the watch directory or the persistence data directory).
func New(storagePath string) *Collector {
	return &Collector{storagePath: storagePath}
}

// Snapshot collects one point-in-time SystemSnapshot.
func (c *Collector) Snapshot(ctx context.Context) SystemSnapshot {
	return SystemSnapshot{
		CPU:       c.collectCPU(ctx),
		Memory:    c.collectMemory(ctx),
		Storage:   c.collectStorage(ctx),
		OS:        c.collectOS(),
		GPU:       c.collectGPU(),
		Timestamp: time.Now().UTC(),
	}
}

func (c *Collector) collectCPU(ctx context.Context) CPUSnapshot {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return CPUSnapshot{}
	}
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	var usage float64
	if err == nil && len(percents) > 0 {
		usage = percents[0]
	}
	return CPUSnapshot{
		Model:        infos[0].ModelName,
		Cores:        runtime.NumCPU(),
		UsagePercent: usage,
	}
}

func (c *Collector) collectMemory(ctx context.Context) MemorySnapshot {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemorySnapshot{}
	}
	const gb = 1024 * 1024 * 1024
	return MemorySnapshot{
		TotalGB:     float64(vm.Total) / gb,
		UsedGB:      float64(vm.Used) / gb,
		UsedPercent: vm.UsedPercent,
	}
}

func (c *Collector) collectStorage(ctx context.Context) StorageSnapshot {
	path := c.storagePath
	if path == "" {
		path = "."
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return StorageSnapshot{Path: path}
	}
	const gb = 1024 * 1024 * 1024
	return StorageSnapshot{
		Path:        path,
		TotalGB:     float64(usage.Total) / gb,
		FreeGB:      float64(usage.Free) / gb,
		UsedPercent: usage.UsedPercent,
	}
}

func (c *Collector) collectOS() OSSnapshot {
	c.osOnce.Do(func() {
		info, err := host.Info()
		if err != nil {
			c.osInfo = OSSnapshot{OS: runtime.GOOS, RuntimeVersion: runtime.Version()}
			return
		}
		c.osInfo = OSSnapshot{
			OS:             info.OS,
			Version:        info.PlatformVersion,
			Hostname:       info.Hostname,
			RuntimeVersion: runtime.Version(),
		}
	})
	return c.osInfo
}

// collectGPU probes only for the nvidia-smi binary on PATH: if it is
// present, cuda_available is true and the model name comes from its
// --query-gpu=name output when that query succeeds; otherwise
// cuda_available is false. No CUDA runtime library is probed.
func (c *Collector) collectGPU() GPUSnapshot {
	if path, err := exec.LookPath("nvidia-smi"); err == nil {
		out, err := exec.Command(path, "--query-gpu=name", "--format=csv,noheader").Output()
		if err == nil && len(out) > 0 {
			return GPUSnapshot{CUDAAvailable: true, Model: trimOutput(out)}
		}
		return GPUSnapshot{CUDAAvailable: true}
	}
	return GPUSnapshot{CUDAAvailable: false}
}

func trimOutput(out []byte) string {
	s := string(out)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// StartMonitoring samples at interval on a dedicated goroutine, appending
// into a bounded (1000) history. A double start is a no-op.
func (c *Collector) StartMonitoring(interval time.Duration) {
	c.monMu.Lock()
	defer c.monMu.Unlock()
	if c.monRunning {
		return // double-start is a no-op, matching spec.md §4.7
	}
	c.monRunning = true
	c.monStop = make(chan struct{})
	c.monDone = make(chan struct{})

	go func() {
		defer close(c.monDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.monStop:
				return
			case <-ticker.C:
				snap := c.Snapshot(context.Background())
				c.historyMu.Lock()
				c.history = append(c.history, snap)
				if len(c.history) > maxHistory {
					c.history = c.history[len(c.history)-maxHistory:]
				}
				c.historyMu.Unlock()
			}
		}
	}()
}

// StopMonitoring signals the sampler goroutine and waits for it to exit.
func (c *Collector) StopMonitoring() {
	c.monMu.Lock()
	if !c.monRunning {
		c.monMu.Unlock()
		return
	}
	stop, done := c.monStop, c.monDone
	c.monRunning = false
	c.monMu.Unlock()

	close(stop)
	<-done
}

// History returns a copy of the sampled snapshot history.
func (c *Collector) History() []SystemSnapshot {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	out := make([]SystemSnapshot, len(c.history))
	copy(out, c.history)
	return out
}

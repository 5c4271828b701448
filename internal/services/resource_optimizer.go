package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// ResourceOptimizer sizes the warmup fan-out from the host's CPU and memory.
type ResourceOptimizer struct {
	mu                 sync.RWMutex
	config             ResourceOptimizerConfig
	cpuCores           int
	memoryGB           float64
	currentCPUUsage    float64
	currentMemoryUsage float64
	limits             ConcurrencyLimits
	logger             logrus.FieldLogger
}

// ConcurrencyLimits holds the calculated concurrency bounds
type ConcurrencyLimits struct {
	MaxWorkers            int `json:"max_workers"`
	MaxConcurrentSubjects int `json:"max_concurrent_subjects"`
}

// ResourceOptimizerConfig holds configuration for the resource optimizer
type ResourceOptimizerConfig struct {
	CPUThreshold    float64
	MemoryThreshold float64
	MinWorkers      int
	MaxWorkers      int
}

// NewResourceOptimizer creates a new resource optimizer
func NewResourceOptimizer(config ResourceOptimizerConfig, logger logrus.FieldLogger) *ResourceOptimizer {
	if config.CPUThreshold == 0 {
		config.CPUThreshold = 80.0
	}
	if config.MemoryThreshold == 0 {
		config.MemoryThreshold = 85.0
	}
	if config.MinWorkers <= 0 {
		config.MinWorkers = 2
	}
	if config.MaxWorkers < config.MinWorkers {
		config.MaxWorkers = max(20, config.MinWorkers)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ro := &ResourceOptimizer{config: config, logger: logger}

	if cores, err := cpu.Counts(true); err == nil && cores > 0 {
		ro.cpuCores = cores
	} else {
		ro.cpuCores = runtime.NumCPU()
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		ro.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		ro.logger.WithError(err).Warn("Could not get memory info, using default")
		ro.memoryGB = 8.0
	}

	ro.recalculate()

	ro.logger.WithFields(logrus.Fields{
		"cpu_cores":   ro.cpuCores,
		"memory_gb":   ro.memoryGB,
		"max_workers": ro.limits.MaxWorkers,
	}).Info("Resource optimizer initialized")

	return ro
}

// recalculate derives limits from the current resource picture
func (ro *ResourceOptimizer) recalculate() {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	workers := min(max(ro.cpuCores*2, ro.config.MinWorkers), ro.config.MaxWorkers)

	memoryFactor := 1.0
	if ro.memoryGB < 4.0 {
		memoryFactor = 0.5
	} else if ro.memoryGB < 8.0 {
		memoryFactor = 0.75
	}

	loadFactor := 1.0
	if ro.currentCPUUsage > ro.config.CPUThreshold {
		loadFactor = 0.7
	} else if ro.currentMemoryUsage > ro.config.MemoryThreshold {
		loadFactor = 0.8
	}

	workers = max(int(float64(workers)*memoryFactor*loadFactor), ro.config.MinWorkers)
	ro.limits = ConcurrencyLimits{
		MaxWorkers: workers,
		// a comparison never has more than two subjects in flight
		MaxConcurrentSubjects: min(workers, 2),
	}
}

// Limits returns the current concurrency limits
func (ro *ResourceOptimizer) Limits() ConcurrencyLimits {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return ro.limits
}

// UpdateSystemMetrics samples current CPU and memory usage and recalculates the limits
func (ro *ResourceOptimizer) UpdateSystemMetrics(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("failed to get CPU usage: %w", err)
	}
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get memory usage: %w", err)
	}

	ro.mu.Lock()
	if len(cpuPercent) > 0 {
		ro.currentCPUUsage = cpuPercent[0]
	}
	ro.currentMemoryUsage = memInfo.UsedPercent
	ro.mu.Unlock()

	ro.recalculate()
	return nil
}

// GetSystemInfo returns current system information
func (ro *ResourceOptimizer) GetSystemInfo() map[string]interface{} {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	return map[string]interface{}{
		"cpu_cores":      ro.cpuCores,
		"memory_gb":      ro.memoryGB,
		"current_cpu":    ro.currentCPUUsage,
		"current_memory": ro.currentMemoryUsage,
		"goroutines":     runtime.NumGoroutine(),
		"limits":         ro.limits,
	}
}

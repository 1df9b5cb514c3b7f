// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package sysstat samples CPU and memory usage of a process.

package sysstat

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
)

// Stats is one sample
type Stats struct {
	PID        int32   `json:"pid"`
	CPU        float64 `json:"cpu_percent"`
	Memory     uint64  `json:"memory_bytes"`
	MemoryText string  `json:"memory"`
	Goroutines int     `json:"goroutines"`
	Uptime     float64 `json:"uptime_seconds"`
}

// Sampler 使用 gopsutil 采集进程 CPU 和内存
type Sampler interface {
	Start(pid int) error
	Stop()
	Current() Stats
}

type sampler struct {
	mu      sync.RWMutex
	pid     int32
	proc    *gopsutilprocess.Process
	started time.Time
}

// NewSampler creates an idle sampler
func NewSampler() Sampler {
	return &sampler{}
}

// Self returns a sampler already attached to the running process
func Self() (Sampler, error) {
	s := NewSampler()
	if err := s.Start(os.Getpid()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sampler) Start(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proc, err := gopsutilprocess.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	s.pid = int32(pid)
	s.proc = proc
	s.started = time.Now()
	return nil
}

func (s *sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pid = 0
	s.proc = nil
}

func (s *sampler) Current() Stats {
	s.mu.RLock()
	proc, pid, started := s.proc, s.pid, s.started
	s.mu.RUnlock()

	stats := Stats{
		PID:        pid,
		Goroutines: runtime.NumGoroutine(),
		MemoryText: humanize.IBytes(0),
	}
	if proc == nil {
		return stats
	}

	stats.Uptime = time.Since(started).Seconds()
	if cpuPct, err := proc.CPUPercent(); err == nil {
		stats.CPU = cpuPct
	}
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		stats.Memory = memInfo.RSS
		stats.MemoryText = humanize.IBytes(memInfo.RSS)
	}
	return stats
}

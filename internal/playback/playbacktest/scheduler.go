// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

// Package playbacktest provides a manually driven playback.Scheduler.
package playbacktest

import (
	"sync"
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/playback"
)

// Timer is a scheduled callback that only fires when told to
type Timer struct {
	Delay time.Duration

	f       func()
	stopped bool
	fired   bool
	owner   *Scheduler
}

// Stop implements playback.Timer
func (t *Timer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Stopped reports whether Stop was called
func (t *Timer) Stopped() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.stopped
}

// Fire runs the callback even if the timer was stopped, modelling a timer
// that expired just before Stop was called.
func (t *Timer) Fire() {
	t.owner.mu.Lock()
	t.fired = true
	t.owner.mu.Unlock()

	t.f()
}

// Scheduler records every AfterFunc call; nothing runs until Fire or Next.
type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

var _ playback.Scheduler = (*Scheduler)(nil)

// New creates a manual scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements playback.Scheduler
func (s *Scheduler) AfterFunc(d time.Duration, f func()) playback.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Timer{Delay: d, f: f, owner: s}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns the timers that are neither stopped nor fired
func (s *Scheduler) Pending() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Timer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// Last returns the most recently scheduled timer, nil if none
func (s *Scheduler) Last() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// Next fires the oldest pending timer and returns its delay. ok is false
// when nothing is pending.
func (s *Scheduler) Next() (delay time.Duration, ok bool) {
	pending := s.Pending()
	if len(pending) == 0 {
		return 0, false
	}
	t := pending[0]
	t.Fire()
	return t.Delay, true
}

// Drain fires pending timers until none remain and returns their delays
func (s *Scheduler) Drain() []time.Duration {
	var delays []time.Duration
	for {
		d, ok := s.Next()
		if !ok {
			return delays
		}
		delays = append(delays, d)
	}
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package sink

import (
	"container/ring"
	"sync"
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// Line is a timestamped journal entry
type Line struct {
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data"`
}

// JournalConfig for the journal
type JournalConfig struct {
	Lines int
}

// Journal keeps the last status messages of a session and counts the frames
// dispatched per group.
type Journal struct {
	log      *ring.Ring
	logLines int
	logStart time.Time

	frames map[record.Group]uint64
	lock   sync.RWMutex
}

// NewJournal creates a Journal. Lines defaults to 100.
func NewJournal(config JournalConfig) *Journal {
	j := &Journal{
		logLines: config.Lines,
	}
	if j.logLines <= 0 {
		j.logLines = 100
	}

	j.log = ring.New(j.logLines)
	j.logStart = time.Now()
	j.frames = make(map[record.Group]uint64)
	return j
}

// OnFrame implements dispatch.Sink
func (j *Journal) OnFrame(group record.Group, _ []record.Value) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.frames[group]++
}

// OnStatus implements dispatch.Sink
func (j *Journal) OnStatus(message string) {
	j.lock.Lock()
	defer j.lock.Unlock()

	j.log.Value = Line{Timestamp: time.Now(), Data: message}
	j.log = j.log.Next()
}

// Log returns the retained lines, oldest first
func (j *Journal) Log() []Line {
	var out []Line
	j.lock.RLock()
	j.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(Line))
		}
	})
	j.lock.RUnlock()
	return out
}

// Last returns the most recent line
func (j *Journal) Last() (Line, bool) {
	j.lock.RLock()
	defer j.lock.RUnlock()

	v, ok := j.log.Prev().Value.(Line)
	return v, ok
}

// Frames returns how many times each group was dispatched
func (j *Journal) Frames() map[record.Group]uint64 {
	j.lock.RLock()
	defer j.lock.RUnlock()

	out := make(map[record.Group]uint64, len(j.frames))
	for g, n := range j.frames {
		out[g] = n
	}
	return out
}

// Since returns when the journal was created or last reset
func (j *Journal) Since() time.Time {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.logStart
}

// Reset drops every line and counter
func (j *Journal) Reset() {
	j.lock.Lock()
	defer j.lock.Unlock()

	j.log = ring.New(j.logLines)
	j.logStart = time.Now()
	j.frames = make(map[record.Group]uint64)
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package sink contains the frame and status consumers a playback session
// dispatches to: rolling chart windows, a status journal, an SSE
// broadcaster and a logger.

package sink

import (
	"container/ring"
	"sync"

	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// DefaultWindowSize 图表窗口默认保留的点数
const DefaultWindowSize = 30

// Series is the window of one sensor group. Values holds one slice per
// field, oldest first; invalid values are gaps.
type Series struct {
	Group  record.Group     `json:"group"`
	Fields []string         `json:"fields"`
	Values [][]record.Value `json:"values"`
}

// Window keeps the last N values of every field of the tracked groups,
// the way a rolling chart does. Every rendered frame pushes exactly one
// point per tracked group, a gap when the group was absent, so all series
// stay aligned.
type Window struct {
	size   int
	groups []record.Group

	series map[record.Group][]*ring.Ring
	seen   map[record.Group]bool
	frames uint64
	lock   sync.RWMutex
}

// NewWindow creates a window of size points for groups, all groups when
// none are given
func NewWindow(size int, groups ...record.Group) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if len(groups) == 0 {
		groups = record.Groups
	}

	w := &Window{
		size:   size,
		groups: groups,
	}
	w.reset()
	return w
}

func (w *Window) reset() {
	w.series = make(map[record.Group][]*ring.Ring, len(w.groups))
	w.seen = make(map[record.Group]bool, len(w.groups))
	w.frames = 0

	for _, g := range w.groups {
		rings := make([]*ring.Ring, len(g.Fields()))
		for i := range rings {
			rings[i] = ring.New(w.size)
		}
		w.series[g] = rings
	}
}

// Groups returns the tracked groups, for dispatch.Sinks.Subscribe
func (w *Window) Groups() []record.Group {
	return w.groups
}

// Size returns the number of points per series
func (w *Window) Size() int {
	return w.size
}

// OnFrame implements dispatch.Sink
func (w *Window) OnFrame(group record.Group, values []record.Value) {
	w.lock.Lock()
	defer w.lock.Unlock()

	rings, ok := w.series[group]
	if !ok || w.seen[group] {
		return
	}
	w.seen[group] = true

	for i, r := range rings {
		var v record.Value
		if i < len(values) {
			v = values[i]
		}
		r.Value = v
		rings[i] = r.Next()
	}
}

// OnStatus implements dispatch.Sink
func (w *Window) OnStatus(string) {}

// EndFrame implements dispatch.FrameEnder: groups the frame did not carry
// get a gap.
func (w *Window) EndFrame(record.Record) {
	w.lock.Lock()
	defer w.lock.Unlock()

	for _, g := range w.groups {
		if w.seen[g] {
			delete(w.seen, g)
			continue
		}
		rings := w.series[g]
		for i, r := range rings {
			r.Value = record.Value{}
			rings[i] = r.Next()
		}
	}
	w.frames++
}

// Frames returns the number of frames pushed since creation or Reset
func (w *Window) Frames() uint64 {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.frames
}

// Reset clears every series back to gaps
func (w *Window) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.reset()
}

// Series returns the window of one group
func (w *Window) Series(group record.Group) (Series, bool) {
	w.lock.RLock()
	defer w.lock.RUnlock()

	rings, ok := w.series[group]
	if !ok {
		return Series{}, false
	}
	return w.snapshot(group, rings), true
}

// Snapshot returns every tracked group in dispatch order
func (w *Window) Snapshot() []Series {
	w.lock.RLock()
	defer w.lock.RUnlock()

	out := make([]Series, 0, len(w.groups))
	for _, g := range w.groups {
		out = append(out, w.snapshot(g, w.series[g]))
	}
	return out
}

func (w *Window) snapshot(group record.Group, rings []*ring.Ring) Series {
	s := Series{
		Group:  group,
		Fields: group.Fields(),
		Values: make([][]record.Value, len(rings)),
	}

	// 环指向下一个写入位置，即最旧的点
	for i, r := range rings {
		values := make([]record.Value, 0, w.size)
		r.Do(func(v interface{}) {
			if x, ok := v.(record.Value); ok {
				values = append(values, x)
				return
			}
			values = append(values, record.Value{})
		})
		s.Values[i] = values
	}
	return s
}

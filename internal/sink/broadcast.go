// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package sink

import (
	"sync"
	"sync/atomic"

	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// Event names published by a Broadcaster
const (
	EventFrame    = "frame"
	EventStatus   = "status"
	EventPosition = "position"
	EventState    = "state"
)

// Event is one server-sent event
type Event struct {
	Name string
	Data interface{}
}

// FrameEvent carries the values of one sensor group
type FrameEvent struct {
	Group  record.Group   `json:"group"`
	Fields []string       `json:"fields"`
	Values []record.Value `json:"values"`
}

// StatusEvent carries a status message
type StatusEvent struct {
	Message string `json:"message"`
}

// PositionEvent carries the playback cursor after a frame was rendered
type PositionEvent struct {
	Index     int     `json:"index"`
	Length    int     `json:"length"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// StateEvent carries a sequencer state transition
type StateEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Broadcaster fans events out to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	buffer  int
	subs    map[chan Event]struct{}
	closed  bool
	dropped atomic.Uint64
	lock    sync.RWMutex
}

// NewBroadcaster creates a Broadcaster with per-subscriber buffers of the
// given size, 64 when not positive
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe returns an event channel and a function that releases it. The
// channel is closed on release or when the Broadcaster is closed.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.lock.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.lock.Lock()
			defer b.lock.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscribers
func (b *Broadcaster) Subscribers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was
// not keeping up
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Publish delivers ev to every subscriber that has room for it
func (b *Broadcaster) Publish(ev Event) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close releases every subscriber. Later subscriptions get a closed channel.
func (b *Broadcaster) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// OnFrame implements dispatch.Sink
func (b *Broadcaster) OnFrame(group record.Group, values []record.Value) {
	b.Publish(Event{Name: EventFrame, Data: FrameEvent{
		Group:  group,
		Fields: group.Fields(),
		Values: values,
	}})
}

// OnStatus implements dispatch.Sink
func (b *Broadcaster) OnStatus(message string) {
	b.Publish(Event{Name: EventStatus, Data: StatusEvent{Message: message}})
}

// Position publishes the cursor
func (b *Broadcaster) Position(index, length int, rec record.Record) {
	b.Publish(Event{Name: EventPosition, Data: PositionEvent{
		Index:     index,
		Length:    length,
		Timestamp: rec.Timestamp,
	}})
}

// State publishes a state transition
func (b *Broadcaster) State(from, to string) {
	b.Publish(Event{Name: EventState, Data: StateEvent{From: from, To: to}})
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package playback replays a record sequence at its recorded cadence.

package playback

import (
	"sync"
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// State of a Sequencer
type State int

const (
	StateIdle State = iota
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	}
	return "unknown"
}

// RenderFunc receives every frame the sequencer displays
type RenderFunc func(index int, rec record.Record)

// Stats cumulative counts
type Stats struct {
	Plays       uint64
	Pauses      uint64
	Seeks       uint64
	Completions uint64
}

// Status snapshot of a Sequencer
type Status struct {
	State    State
	Index    int // -1 when no sequence is loaded
	Length   int
	Time     time.Time // last state change
	Duration time.Duration
	Stats    Stats
}

// WithScheduler replaces the real clock, mainly for tests
func WithScheduler(s Scheduler) func(*Sequencer) {
	return func(q *Sequencer) {
		q.scheduler = s
	}
}

// WithDelayBounds sets the frame delay limits. Zero fields keep the defaults.
func WithDelayBounds(b DelayBounds) func(*Sequencer) {
	return func(q *Sequencer) {
		q.bounds = b.withDefaults()
	}
}

// WithLogger sets the logger for the sequencer
func WithLogger(l logger.Logger) func(*Sequencer) {
	return func(q *Sequencer) {
		q.logger = l
	}
}

// WithStateChange registers a callback for state transitions
func WithStateChange(f func(from, to State)) func(*Sequencer) {
	return func(q *Sequencer) {
		q.onStateChange = f
	}
}

// Sequencer is the playback state machine: Idle -> Paused <-> Playing.
//
// At most one advance is scheduled at any time. Every mutating entry point
// cancels it before touching the cursor, and the advance itself checks a
// generation counter, so a timer that already fired but lost the race for
// the lock never renders against a superseded cursor or sequence.
//
// Render and state change callbacks run with the sequencer locked and must
// not call back into it.
type Sequencer struct {
	mu      sync.Mutex
	records []record.Record
	index   int
	state   State
	since   time.Time
	stats   Stats

	timer Timer
	gen   uint64

	render        RenderFunc
	onStateChange func(from, to State)
	scheduler     Scheduler
	bounds        DelayBounds
	logger        logger.Logger
}

// New creates an idle Sequencer that reports frames to render
func New(render RenderFunc, options ...func(*Sequencer)) *Sequencer {
	q := &Sequencer{
		index:     -1,
		state:     StateIdle,
		since:     time.Now(),
		render:    render,
		scheduler: SystemScheduler,
		bounds:    DefaultDelayBounds,
		logger:    logger.Nop(),
	}

	for _, option := range options {
		option(q)
	}

	if q.render == nil {
		q.render = func(int, record.Record) {}
	}

	return q
}

// Load replaces the sequence, renders frame 0 and pauses there. An empty
// sequence leaves the sequencer idle.
func (q *Sequencer) Load(records []record.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancel()
	q.records = records

	if len(records) == 0 {
		q.index = -1
		q.setState(StateIdle)
		return
	}

	q.renderAt(0)
	q.setState(StatePaused)
}

// Play starts auto-advancing. It is a no-op with nothing loaded, at the last
// frame, or when already playing.
func (q *Sequencer) Play() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 || q.index >= len(q.records)-1 || q.state == StatePlaying {
		return
	}

	q.stats.Plays++
	q.setState(StatePlaying)
	q.advance()
}

// Pause cancels any scheduled advance. Idempotent.
func (q *Sequencer) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pause()
}

// Seek pauses and renders the frame at index, clamped to the sequence
func (q *Sequencer) Seek(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seek(index)
}

// Reset pauses and returns to the first frame
func (q *Sequencer) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pause()
	q.seek(0)
}

// Close stops playback and drops the sequence
func (q *Sequencer) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancel()
	q.records = nil
	q.index = -1
	q.setState(StateIdle)
}

// Position returns the cursor and the sequence length
func (q *Sequencer) Position() (index, length int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.index, len(q.records)
}

// Current returns the record under the cursor
func (q *Sequencer) Current() (record.Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.index < 0 || q.index >= len(q.records) {
		return record.Record{}, false
	}
	return q.records[q.index], true
}

// State returns the current state
func (q *Sequencer) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.state
}

// Status returns a snapshot of the sequencer
func (q *Sequencer) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Status{
		State:    q.state,
		Index:    q.index,
		Length:   len(q.records),
		Time:     q.since,
		Duration: time.Since(q.since),
		Stats:    q.stats,
	}
}

func (q *Sequencer) pause() {
	q.cancel()
	if q.state == StatePlaying {
		q.stats.Pauses++
		q.setState(StatePaused)
	}
}

func (q *Sequencer) seek(index int) {
	if len(q.records) == 0 {
		return
	}
	q.pause()

	if index < 0 {
		index = 0
	}
	if last := len(q.records) - 1; index > last {
		index = last
	}

	q.stats.Seeks++
	q.renderAt(index)
}

// advance moves from the cursor to the next frame and schedules the one
// after it. Reaching the last frame pauses.
func (q *Sequencer) advance() {
	last := len(q.records) - 1
	if q.index >= last {
		q.stats.Completions++
		q.setState(StatePaused)
		return
	}

	cur := q.records[q.index]
	next := q.index + 1
	q.renderAt(next)

	if next == last {
		q.stats.Completions++
		q.logger.Debug("reached last frame %d", next)
		q.setState(StatePaused)
		return
	}

	delay := q.bounds.FrameDelay(cur, q.records[next])
	gen := q.gen
	q.timer = q.scheduler.AfterFunc(delay, func() {
		q.tick(gen)
	})
}

func (q *Sequencer) tick(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.gen || q.state != StatePlaying {
		return
	}
	q.timer = nil
	q.advance()
}

// cancel invalidates the outstanding advance, if any
func (q *Sequencer) cancel() {
	q.gen++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

func (q *Sequencer) renderAt(index int) {
	q.index = index
	q.render(index, q.records[index])
}

func (q *Sequencer) setState(state State) {
	if q.state == state {
		return
	}

	from := q.state
	q.state = state
	q.since = time.Now()
	q.logger.Debug("state %s -> %s", from, state)

	if q.onStateChange != nil {
		q.onStateChange(from, state)
	}
}

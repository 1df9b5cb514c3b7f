// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/dispatch"
	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/normalize"
	"github.com/ZSC714725/telemetryreplay/internal/playback"
	"github.com/ZSC714725/telemetryreplay/internal/record"
	"github.com/ZSC714725/telemetryreplay/internal/sink"
)

// Status messages published to the session sinks
const (
	MessagePlaying = "Playing"
	MessagePaused  = "Paused"
	MessageEnd     = "Reached end of log"
)

// LoadInfo describes the last successful load
type LoadInfo struct {
	Records  int       `json:"records"`
	Form     string    `json:"form"`
	Lines    int       `json:"lines"`
	Skipped  int       `json:"skipped"`
	Message  string    `json:"message"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Report aggregates what a session knows about itself
type Report struct {
	Status  playback.Status
	Load    LoadInfo
	Frames  map[record.Group]uint64
	Log     []sink.Line
	Last    string    // latest status message
	Since   time.Time // journal start
	Dropped uint64
}

// Session is one playback of a loaded log
type Session struct {
	ID        string
	Reference string
	Config    *Config
	CreatedAt int64

	seq     *playback.Sequencer
	sinks   *dispatch.Sinks
	window  *sink.Window
	journal *sink.Journal
	events  *sink.Broadcaster
	logger  logger.Logger

	length    atomic.Int64
	lastIndex atomic.Int64

	lock      sync.RWMutex
	load      LoadInfo
	order     string
	updatedAt int64
}

func newSession(config *Config, groups []record.Group, scheduler playback.Scheduler, log logger.Logger, logFrames bool) *Session {
	now := time.Now().Unix()
	s := &Session{
		ID:        config.ID,
		Reference: config.Reference,
		Config:    config,
		CreatedAt: now,
		updatedAt: now,
		order:     CommandPause,
		sinks:     dispatch.NewSinks(),
		window:    sink.NewWindow(config.WindowSize, groups...),
		journal:   sink.NewJournal(sink.JournalConfig{Lines: config.JournalLines}),
		events:    sink.NewBroadcaster(0),
		logger:    log,
	}
	s.lastIndex.Store(-1)

	s.sinks.Subscribe(s.window, s.window.Groups()...)
	s.sinks.Subscribe(s.journal)
	s.sinks.Subscribe(s.events)
	s.sinks.Subscribe(sink.NewLog(log, logFrames))

	options := []func(*playback.Sequencer){
		playback.WithDelayBounds(config.DelayBounds()),
		playback.WithLogger(log),
		playback.WithStateChange(s.stateChanged),
	}
	if scheduler != nil {
		options = append(options, playback.WithScheduler(scheduler))
	}
	s.seq = playback.New(s.render, options...)

	return s
}

// render runs with the sequencer locked
func (s *Session) render(index int, rec record.Record) {
	s.lastIndex.Store(int64(index))
	dispatch.Dispatch(rec, s.sinks)
	s.events.Position(index, int(s.length.Load()), rec)
}

// stateChanged runs with the sequencer locked
func (s *Session) stateChanged(from, to playback.State) {
	s.events.State(from.String(), to.String())

	switch {
	case to == playback.StatePlaying:
		s.sinks.Status(MessagePlaying)
	case from == playback.StatePlaying && to == playback.StatePaused:
		if s.lastIndex.Load() == s.length.Load()-1 {
			s.sinks.Status(MessageEnd)
			return
		}
		s.sinks.Status(MessagePaused)
	}
}

// apply replaces the sequence with a successful normalization
func (s *Session) apply(res normalize.Result) {
	s.lock.Lock()
	s.load = LoadInfo{
		Records:  len(res.Records),
		Form:     res.Form.String(),
		Lines:    res.Lines,
		Skipped:  res.Skipped,
		Message:  res.Message(),
		LoadedAt: time.Now(),
	}
	s.updatedAt = time.Now().Unix()
	s.order = CommandPause
	s.lock.Unlock()

	// stop a running playback before the window is cleared
	s.seq.Pause()
	s.window.Reset()
	s.sinks.Status(res.Message())

	s.length.Store(int64(len(res.Records)))
	s.seq.Load(res.Records)
}

func (s *Session) setOrder(order string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.order = order
	s.updatedAt = time.Now().Unix()
}

// Order returns the last command given to the session
func (s *Session) Order() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.order
}

// UpdatedAt returns the unix time of the last load or command
func (s *Session) UpdatedAt() int64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.updatedAt
}

// Status returns the sequencer status
func (s *Session) Status() playback.Status {
	return s.seq.Status()
}

// Position returns the cursor and the sequence length, -1 when empty
func (s *Session) Position() (index, length int) {
	return s.seq.Position()
}

// Current returns the record under the cursor
func (s *Session) Current() (record.Record, bool) {
	return s.seq.Current()
}

// Window returns the rolling chart windows
func (s *Session) Window() []sink.Series {
	return s.window.Snapshot()
}

// Log returns the status journal
func (s *Session) Log() []sink.Line {
	return s.journal.Log()
}

// LoadInfo returns what the last load produced
func (s *Session) LoadInfo() LoadInfo {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.load
}

// Subscribe returns the session event stream, see sink.Broadcaster
func (s *Session) Subscribe() (<-chan sink.Event, func()) {
	return s.events.Subscribe()
}

// Sinks exposes the dispatch set so callers can attach their own sinks
func (s *Session) Sinks() *dispatch.Sinks {
	return s.sinks
}

// Report returns a snapshot of the session
func (s *Session) Report() Report {
	r := Report{
		Status:  s.seq.Status(),
		Load:    s.LoadInfo(),
		Frames:  s.journal.Frames(),
		Log:     s.journal.Log(),
		Since:   s.journal.Since(),
		Dropped: s.events.Dropped(),
	}
	if last, ok := s.journal.Last(); ok {
		r.Last = last.Data
	}
	return r
}

func (s *Session) close() {
	s.seq.Close()
	s.events.Close()
	s.journal.Reset()
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package playback_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/telemetryreplay/internal/playback"
	"github.com/ZSC714725/telemetryreplay/internal/playback/playbacktest"
	"github.com/ZSC714725/telemetryreplay/internal/record"
)

type frameLog struct {
	mu      sync.Mutex
	indices []int
	records []record.Record
}

func (f *frameLog) render(index int, rec record.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indices = append(f.indices, index)
	f.records = append(f.records, rec)
}

func (f *frameLog) rendered() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.indices...)
}

func (f *frameLog) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indices = nil
	f.records = nil
}

func records(timestamps ...float64) []record.Record {
	out := make([]record.Record, len(timestamps))
	for i, ts := range timestamps {
		out[i] = record.Record{
			Timestamp: ts,
			Vibration: &record.Vibration{Level: record.Float(float64(i))},
		}
	}
	return out
}

func newSequencer(t *testing.T) (*playback.Sequencer, *playbacktest.Scheduler, *frameLog) {
	t.Helper()
	frames := &frameLog{}
	sched := playbacktest.New()
	return playback.New(frames.render, playback.WithScheduler(sched)), sched, frames
}

func TestFrameDelay(t *testing.T) {
	b := playback.DefaultDelayBounds
	at := func(ts float64) record.Record { return record.Record{Timestamp: ts} }

	assert.Equal(t, 500*time.Millisecond, b.FrameDelay(at(10.0), at(10.5)))
	assert.Equal(t, 10*time.Millisecond, b.FrameDelay(at(10.0), at(10.0003)))
	assert.Equal(t, 2*time.Second, b.FrameDelay(at(10.0), at(50.0)))
	assert.Equal(t, 10*time.Millisecond, b.FrameDelay(at(50.0), at(10.0)), "out of order")
	assert.Equal(t, time.Second, b.FrameDelay(at(0), at(10.5)), "missing timestamp")
	assert.Equal(t, time.Second, b.FrameDelay(at(10), record.Record{}))
	assert.Equal(t, 2*time.Second, b.FrameDelay(at(1), at(1e15)), "huge gap")
}

func TestLoadRendersFirstFrame(t *testing.T) {
	q, sched, frames := newSequencer(t)
	assert.Equal(t, playback.StateIdle, q.State())

	q.Load(records(1, 2, 3))

	assert.Equal(t, playback.StatePaused, q.State())
	assert.Equal(t, []int{0}, frames.rendered())
	index, length := q.Position()
	assert.Equal(t, 0, index)
	assert.Equal(t, 3, length)
	assert.Empty(t, sched.Pending())
}

func TestLoadEmptyStaysIdle(t *testing.T) {
	q, sched, frames := newSequencer(t)

	q.Load(nil)
	q.Play()
	q.Seek(3)

	assert.Equal(t, playback.StateIdle, q.State())
	assert.Empty(t, frames.rendered())
	assert.Empty(t, sched.Pending())
	index, length := q.Position()
	assert.Equal(t, -1, index)
	assert.Zero(t, length)
	_, ok := q.Current()
	assert.False(t, ok)
}

func TestPlayAdvancesWithRecordedCadence(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(10.0, 10.5, 11.0, 50.0, 0, 60.0))

	q.Play()
	assert.Equal(t, playback.StatePlaying, q.State())
	assert.Equal(t, []int{0, 1}, frames.rendered())

	delays := sched.Drain()
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, // 10.0 -> 10.5
		500 * time.Millisecond, // 10.5 -> 11.0
		2 * time.Second,        // 11.0 -> 50.0 clamped
		time.Second,            // 50.0 -> unknown
	}, delays)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, frames.rendered())
	assert.Equal(t, playback.StatePaused, q.State())
	index, _ := q.Position()
	assert.Equal(t, 5, index)
	assert.Equal(t, uint64(1), q.Status().Stats.Completions)
}

func TestSeekWhilePlayingCancelsAdvance(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	q.Play()
	pending := sched.Pending()
	require.Len(t, pending, 1)
	stale := pending[0]

	q.Seek(5)
	assert.Equal(t, playback.StatePaused, q.State())
	assert.True(t, stale.Stopped())
	assert.Empty(t, sched.Pending())

	// a timer that expired before Stop still must not render
	stale.Fire()
	assert.Equal(t, []int{0, 1, 5}, frames.rendered())
	index, _ := q.Position()
	assert.Equal(t, 5, index)

	q.Play()
	assert.Equal(t, []int{0, 1, 5, 6}, frames.rendered())
}

func TestStaleAdvanceAfterPauseIsIgnored(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(1, 2, 3, 4))
	q.Play()
	stale := sched.Last()

	q.Pause()
	q.Play() // schedules a fresh advance
	fresh := sched.Last()
	require.NotSame(t, stale, fresh)

	stale.Fire()
	assert.Equal(t, []int{0, 1, 2}, frames.rendered())

	fresh.Fire()
	assert.Equal(t, []int{0, 1, 2, 3}, frames.rendered())
	assert.Equal(t, playback.StatePaused, q.State())
}

func TestPlayAtLastIndexIsNoop(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(1, 2, 3))
	q.Seek(2)
	frames.reset()

	q.Play()

	assert.Equal(t, playback.StatePaused, q.State())
	assert.Empty(t, frames.rendered())
	assert.Empty(t, sched.Pending())
	assert.Zero(t, q.Status().Stats.Plays)
}

func TestPlaySingleRecordIsNoop(t *testing.T) {
	q, _, _ := newSequencer(t)
	q.Load(records(1))
	q.Play()
	assert.Equal(t, playback.StatePaused, q.State())
}

func TestPlayTwiceSchedulesOnce(t *testing.T) {
	q, sched, _ := newSequencer(t)
	q.Load(records(1, 2, 3, 4))

	q.Play()
	q.Play()
	assert.Len(t, sched.Pending(), 1)
}

func TestPauseIsIdempotent(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(1, 2, 3, 4))
	q.Play()

	q.Pause()
	once := q.Status()
	onceFrames := frames.rendered()

	q.Pause()
	twice := q.Status()

	assert.Equal(t, once.State, twice.State)
	assert.Equal(t, once.Index, twice.Index)
	assert.Equal(t, once.Stats, twice.Stats)
	assert.Equal(t, once.Time, twice.Time)
	assert.Equal(t, onceFrames, frames.rendered())
	assert.Empty(t, sched.Pending())
	assert.Equal(t, uint64(1), twice.Stats.Pauses)
}

func TestSeekClamps(t *testing.T) {
	q, _, frames := newSequencer(t)
	q.Load(records(1, 2, 3, 4))

	q.Seek(-7)
	q.Seek(42)
	q.Seek(2)

	assert.Equal(t, []int{0, 0, 3, 2}, frames.rendered())
	assert.Equal(t, uint64(3), q.Status().Stats.Seeks)
}

func TestResetRoundTrip(t *testing.T) {
	q, sched, frames := newSequencer(t)
	recs := records(1, 1.2, 1.4, 1.6)
	q.Load(recs)
	first := frames.records[0]

	q.Play()
	sched.Drain()
	require.Equal(t, playback.StatePaused, q.State())
	index, _ := q.Position()
	require.Equal(t, 3, index)

	frames.reset()
	q.Reset()

	index, _ = q.Position()
	assert.Equal(t, 0, index)
	assert.Equal(t, []int{0}, frames.rendered())
	assert.Equal(t, first, frames.records[0])
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, recs[0], cur)
}

func TestLoadWhilePlayingReplacesSequence(t *testing.T) {
	q, sched, frames := newSequencer(t)
	q.Load(records(1, 2, 3, 4))
	q.Play()
	stale := sched.Last()

	q.Load(records(100, 101))
	assert.True(t, stale.Stopped())
	assert.Equal(t, playback.StatePaused, q.State())

	stale.Fire()
	assert.Equal(t, []int{0, 1, 0}, frames.rendered())
	_, length := q.Position()
	assert.Equal(t, 2, length)
}

func TestStateChangeCallback(t *testing.T) {
	var transitions []string
	sched := playbacktest.New()
	q := playback.New(nil,
		playback.WithScheduler(sched),
		playback.WithStateChange(func(from, to playback.State) {
			transitions = append(transitions, from.String()+">"+to.String())
		}),
	)

	q.Load(records(1, 2, 3))
	q.Play()
	q.Pause()
	q.Play()
	sched.Drain()
	q.Close()

	assert.Equal(t, []string{
		"idle>paused",
		"paused>playing",
		"playing>paused",
		"paused>playing",
		"playing>paused",
		"paused>idle",
	}, transitions)
}

func TestDelayBoundsOption(t *testing.T) {
	sched := playbacktest.New()
	q := playback.New(nil,
		playback.WithScheduler(sched),
		playback.WithDelayBounds(playback.DelayBounds{Min: 50 * time.Millisecond, Max: 100 * time.Millisecond}),
	)
	q.Load(records(1, 1.001, 5, 6))
	q.Play()

	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}, sched.Drain())
}

func TestRealSchedulerPlaysToEnd(t *testing.T) {
	frames := &frameLog{}
	q := playback.New(frames.render, playback.WithDelayBounds(playback.DelayBounds{
		Min:     time.Millisecond,
		Max:     5 * time.Millisecond,
		Nominal: time.Millisecond,
	}))
	q.Load(make([]record.Record, 20))
	q.Play()

	require.Eventually(t, func() bool {
		return q.State() == playback.StatePaused
	}, 2*time.Second, time.Millisecond)

	rendered := frames.rendered()
	require.Len(t, rendered, 20)
	for i, idx := range rendered {
		assert.Equal(t, i, idx)
	}
}

func TestConcurrentControl(t *testing.T) {
	q := playback.New(nil, playback.WithDelayBounds(playback.DelayBounds{
		Min:     time.Millisecond,
		Max:     time.Millisecond,
		Nominal: time.Millisecond,
	}))
	q.Load(make([]record.Record, 200))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 4 {
				case 0:
					q.Play()
				case 1:
					q.Pause()
				case 2:
					q.Seek(j * 3)
				case 3:
					q.Position()
				}
			}
		}(i)
	}
	wg.Wait()

	q.Close()
	assert.Equal(t, playback.StateIdle, q.State())
	index, length := q.Position()
	assert.Equal(t, -1, index)
	assert.Zero(t, length)
}

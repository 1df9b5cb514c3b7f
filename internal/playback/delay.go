// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package playback

import (
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// DelayBounds limits the wait between two frames
type DelayBounds struct {
	Min     time.Duration
	Max     time.Duration
	Nominal time.Duration // used when either frame has no timestamp
}

// DefaultDelayBounds 10ms - 2s, 1s when timestamps are missing
var DefaultDelayBounds = DelayBounds{
	Min:     10 * time.Millisecond,
	Max:     2 * time.Second,
	Nominal: time.Second,
}

// FrameDelay returns the real-time gap between cur and next, clamped to the
// bounds. Out-of-order timestamps yield the minimum.
func (b DelayBounds) FrameDelay(cur, next record.Record) time.Duration {
	delay := b.Nominal
	if cur.HasTimestamp() && next.HasTimestamp() {
		// clamp in float space, converting a huge gap to int64 would overflow
		ns := (next.Timestamp - cur.Timestamp) * float64(time.Second)
		switch {
		case ns < float64(b.Min):
			return b.Min
		case ns > float64(b.Max):
			return b.Max
		}
		delay = time.Duration(ns)
	}
	return b.clamp(delay)
}

func (b DelayBounds) clamp(d time.Duration) time.Duration {
	if d < b.Min {
		return b.Min
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

func (b DelayBounds) withDefaults() DelayBounds {
	if b.Min <= 0 {
		b.Min = DefaultDelayBounds.Min
	}
	if b.Max <= 0 {
		b.Max = DefaultDelayBounds.Max
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.Nominal <= 0 {
		b.Nominal = DefaultDelayBounds.Nominal
	}
	return b
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package playback

import "time"

type (
	// Scheduler abstracts time.AfterFunc so tests can control when scheduled
	// advances fire.
	Scheduler interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	// Timer abstracts the functionality of time.Timer used by the sequencer.
	Timer interface {
		Stop() bool
	}

	systemScheduler struct{}
)

// AfterFunc indirects time.AfterFunc.
func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the real clock.
var SystemScheduler Scheduler = systemScheduler{}

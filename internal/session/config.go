// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package session

import (
	"time"

	"github.com/ZSC714725/telemetryreplay/internal/playback"
	"github.com/ZSC714725/telemetryreplay/internal/record"
	"github.com/ZSC714725/telemetryreplay/internal/sink"
)

const defaultJournalLines = 100

// Config for a playback session. Zero values take the store defaults.
type Config struct {
	ID             string   `json:"id"`
	Reference      string   `json:"reference"`
	Autoplay       *bool    `json:"autoplay,omitempty"` // nil: store default
	Groups         []string `json:"groups"` // sensor groups kept in the chart window, all when empty
	WindowSize     int      `json:"window_size"`
	JournalLines   int      `json:"journal_lines"`
	MinDelayMs     uint64   `json:"min_delay_ms"`
	MaxDelayMs     uint64   `json:"max_delay_ms"`
	NominalDelayMs uint64   `json:"nominal_delay_ms"`
}

// DelayBounds converts the millisecond settings
func (c *Config) DelayBounds() playback.DelayBounds {
	return playback.DelayBounds{
		Min:     time.Duration(c.MinDelayMs) * time.Millisecond,
		Max:     time.Duration(c.MaxDelayMs) * time.Millisecond,
		Nominal: time.Duration(c.NominalDelayMs) * time.Millisecond,
	}
}

// AutoplayEnabled reports whether playback starts right after Add
func (c *Config) AutoplayEnabled() bool {
	return c.Autoplay != nil && *c.Autoplay
}

// WindowGroups validates Groups
func (c *Config) WindowGroups() ([]record.Group, error) {
	var out []record.Group
	for _, name := range c.Groups {
		g := record.Group(name)
		if !g.Valid() {
			return nil, ErrInvalidGroup
		}
		out = append(out, g)
	}
	return out, nil
}

// merge fills unset fields from defaults
func (c *Config) merge(defaults Config) {
	if c.WindowSize <= 0 {
		c.WindowSize = defaults.WindowSize
	}
	if c.JournalLines <= 0 {
		c.JournalLines = defaults.JournalLines
	}
	if c.MinDelayMs == 0 {
		c.MinDelayMs = defaults.MinDelayMs
	}
	if c.MaxDelayMs == 0 {
		c.MaxDelayMs = defaults.MaxDelayMs
	}
	if c.NominalDelayMs == 0 {
		c.NominalDelayMs = defaults.NominalDelayMs
	}
	if len(c.Groups) == 0 {
		c.Groups = defaults.Groups
	}
	if c.Autoplay == nil {
		on := defaults.Autoplay != nil && *defaults.Autoplay
		c.Autoplay = &on
	}

	// still unset: built-in defaults
	if c.WindowSize <= 0 {
		c.WindowSize = sink.DefaultWindowSize
	}
	if c.JournalLines <= 0 {
		c.JournalLines = defaultJournalLines
	}
	b := playback.DefaultDelayBounds
	if c.MinDelayMs == 0 {
		c.MinDelayMs = uint64(b.Min.Milliseconds())
	}
	if c.MaxDelayMs == 0 {
		c.MaxDelayMs = uint64(b.Max.Milliseconds())
	}
	if c.NominalDelayMs == 0 {
		c.NominalDelayMs = uint64(b.Nominal.Milliseconds())
	}
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package api

import (
	"github.com/ZSC714725/telemetryreplay/internal/session"
	"github.com/ZSC714725/telemetryreplay/internal/sysstat"
)

// Data sources accepted by SessionConfigRequest.Source
const (
	SourceReadings = "readings"
	SourceSQLite   = "sqlite"
)

// SessionConfigRequest for Add. Data carries the raw log; when empty the
// log is read from Source.
type SessionConfigRequest struct {
	ID             string   `json:"id"`
	Reference      string   `json:"reference"`
	Autoplay       *bool    `json:"autoplay"` // unset: server default
	Groups         []string `json:"groups"`
	WindowSize     int      `json:"window_size"`
	JournalLines   int      `json:"journal_lines"`
	MinDelayMs     uint64   `json:"min_delay_ms"`
	MaxDelayMs     uint64   `json:"max_delay_ms"`
	NominalDelayMs uint64   `json:"nominal_delay_ms"`
	Data           string   `json:"data"`
	Source         string   `json:"source"`
}

// Session represents a playback session in API responses
type Session struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
	Config    *session.Config   `json:"config,omitempty"`
	Load      *session.LoadInfo `json:"load,omitempty"`
	State     *SessionState     `json:"state,omitempty"`
	Report    *SessionReport    `json:"report,omitempty"`
}

// SessionState for API
type SessionState struct {
	Order     string        `json:"order"`
	State     string        `json:"state"`
	Index     int           `json:"index"`
	Length    int           `json:"length"`
	Timestamp float64       `json:"timestamp,omitempty"`
	Time      string        `json:"time,omitempty"` // HH:MM:SS of the current frame
	Since     int64         `json:"since"`
	Runtime   int64         `json:"runtime_seconds"`
	Stats     PlaybackStats `json:"stats"`
}

// PlaybackStats cumulative sequencer counters
type PlaybackStats struct {
	Plays       uint64 `json:"plays"`
	Pauses      uint64 `json:"pauses"`
	Seeks       uint64 `json:"seeks"`
	Completions uint64 `json:"completions"`
}

// SessionReport for logs
type SessionReport struct {
	CreatedAt int64             `json:"created_at"`
	Load      session.LoadInfo  `json:"load"`
	Frames    map[string]uint64 `json:"frames"`
	Log       [][2]string       `json:"log"`
	Last      string            `json:"last"`
	LogSince  int64             `json:"log_since"`
	Dropped   uint64            `json:"dropped_events"`
}

// CommandRequest for play/pause/reset/seek
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
	Index   int    `json:"index"`
}

// SystemResponse for GET /system
type SystemResponse struct {
	Process  sysstat.Stats `json:"process"`
	Sessions int           `json:"sessions"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package sink

import (
	"strconv"
	"strings"

	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// Log writes status messages at info level and, when frames is set, every
// dispatched group at debug level.
type Log struct {
	logger logger.Logger
	frames bool
}

// NewLog creates a logger sink
func NewLog(l logger.Logger, frames bool) *Log {
	if l == nil {
		l = logger.Nop()
	}
	return &Log{logger: l, frames: frames}
}

// OnFrame implements dispatch.Sink
func (s *Log) OnFrame(group record.Group, values []record.Value) {
	if !s.frames {
		return
	}
	s.logger.Debug("frame %s %s", group, formatValues(group.Fields(), values))
}

// OnStatus implements dispatch.Sink
func (s *Log) OnStatus(message string) {
	s.logger.Info("%s", message)
}

// formatValues renders "name=value" pairs, "--" for a missing value
func formatValues(fields []string, values []record.Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i < len(fields) {
			b.WriteString(fields[i])
			b.WriteByte('=')
		}
		if !v.Valid {
			b.WriteString("--")
			continue
		}
		b.WriteString(strconv.FormatFloat(v.Float64, 'f', -1, 64))
	}
	return b.String()
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package sysstat

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelf(t *testing.T) {
	s, err := Self()
	require.NoError(t, err)

	stats := s.Current()
	assert.Equal(t, int32(os.Getpid()), stats.PID)
	assert.Greater(t, stats.Memory, uint64(0))
	assert.NotEmpty(t, stats.MemoryText)
	assert.GreaterOrEqual(t, stats.CPU, 0.0)
	assert.Greater(t, stats.Goroutines, 0)
}

func TestIdleSampler(t *testing.T) {
	s := NewSampler()
	stats := s.Current()
	assert.Zero(t, stats.PID)
	assert.Zero(t, stats.Memory)
	assert.Equal(t, "0 B", stats.MemoryText)

	require.NoError(t, s.Start(os.Getpid()))
	s.Stop()
	assert.Zero(t, s.Current().PID)
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package session

import "errors"

var (
	ErrNotFound       = errors.New("session not found")
	ErrSessionExists  = errors.New("session already exists")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidGroup   = errors.New("invalid sensor group")
)

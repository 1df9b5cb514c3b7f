// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package source

import "errors"

var (
	ErrPathNotAllowed = errors.New("path not allowed")
	ErrNotFound       = errors.New("log not found")
)

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package normalize

import "errors"

var (
	ErrNoData           = errors.New("no data available")
	ErrUnrecognizedForm = errors.New("unrecognized log format")
	ErrParseFailure     = errors.New("failed to parse records")
)

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package source retrieves raw telemetry logs: plain files written by the
// sensor logger, and sqlite archives holding one JSON payload per row.

package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Source yields the raw text of a telemetry log
type Source interface {
	Text(ctx context.Context) (string, error)
	String() string
}

// File is a log file on disk. A nil Validator allows every path.
type File struct {
	Path      string
	Validator Validator
}

func (f File) String() string {
	return "file:" + f.Path
}

// Text reads the whole file
func (f File) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := checkPath(f.Path, f.Validator)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}
	return string(data), nil
}

// SQLite is an archive database with a readings(id, payload) table. Rows are
// joined in id order into line-delimited text.
type SQLite struct {
	Path      string
	Validator Validator
}

func (s SQLite) String() string {
	return "sqlite:" + s.Path
}

// Text opens the archive read-only and returns its payloads, one per line.
// NULL and blank payloads are left out.
func (s SQLite) Text(ctx context.Context) (text string, err error) {
	path, err := checkPath(s.Path, s.Validator)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, "mode=ro"))
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer closeWithError(db, &err)

	rows, err := db.QueryContext(ctx, `SELECT payload FROM readings ORDER BY id`)
	if err != nil {
		return "", fmt.Errorf("querying readings: %w", err)
	}
	defer closeWithError(rows, &err)

	var b strings.Builder
	for rows.Next() {
		var payload sql.NullString
		if err := rows.Scan(&payload); err != nil {
			return "", fmt.Errorf("scanning reading: %w", err)
		}
		line := strings.TrimSpace(payload.String)
		if !payload.Valid || line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating readings: %w", err)
	}

	return b.String(), nil
}

func checkPath(path string, v Validator) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	path = filepath.Clean(path)
	if v != nil && !v.IsValid(path) {
		return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	return path, nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

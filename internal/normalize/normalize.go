// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package normalize turns a raw telemetry log into an ordered sequence of
// records. Three shapes are accepted: a JSON array of samples, one JSON
// sample per line, and a single pretty-printed sample. Malformed lines are
// skipped; Normalize never fails, it reports what happened in Result.

package normalize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/record"
)

const (
	// A line-delimited log with more than this many lines, one of which ends
	// with the continuation marker, is retried as a single multi-line object.
	fallbackMinLines   = 5
	continuationMarker = ","
)

// Status classifies the outcome of a normalization
type Status int

const (
	StatusOK Status = iota
	StatusEmptyInput
	StatusUnrecognizedForm
	StatusParseFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmptyInput:
		return "empty"
	case StatusUnrecognizedForm:
		return "unrecognized"
	case StatusParseFailure:
		return "parse_failure"
	}
	return "unknown"
}

// Form is the serialization shape that was detected
type Form int

const (
	FormNone Form = iota
	FormArray
	FormLines
	FormSingleObject
)

func (f Form) String() string {
	switch f {
	case FormArray:
		return "array"
	case FormLines:
		return "lines"
	case FormSingleObject:
		return "object"
	}
	return "none"
}

// Result of a normalization
type Result struct {
	Records []record.Record
	Status  Status
	Form    Form
	Lines   int // non-blank lines examined in line-delimited form
	Skipped int // malformed lines dropped
}

// Err maps the status to a sentinel error, nil when records were produced
func (r Result) Err() error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusEmptyInput:
		return ErrNoData
	case StatusUnrecognizedForm:
		return ErrUnrecognizedForm
	}
	return ErrParseFailure
}

// Message is the human readable status line for the result
func (r Result) Message() string {
	switch r.Status {
	case StatusOK:
		return fmt.Sprintf("Loaded %d records", len(r.Records))
	case StatusEmptyInput:
		return "No data available"
	}
	return "Failed to parse records"
}

// Normalizer converts raw log text into records
type Normalizer struct {
	logger logger.Logger
}

// New creates a Normalizer. A nil logger discards output.
func New(log logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{logger: log}
}

// Normalize is a convenience wrapper using a silent Normalizer
func Normalize(raw string) Result {
	return New(nil).Normalize(raw)
}

// Normalize detects the shape of raw from its first non-whitespace character
// and parses it accordingly.
func (n *Normalizer) Normalize(raw string) Result {
	trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	if trimmed == "" {
		return Result{Status: StatusEmptyInput}
	}

	var res Result
	switch trimmed[0] {
	case '[':
		res = n.array(trimmed)
	case '{':
		res = n.lines(trimmed)
	default:
		n.logger.Warn("unrecognized log format: leading character %q", trimmed[0])
		return Result{Status: StatusUnrecognizedForm}
	}

	if len(res.Records) == 0 {
		res.Status = StatusParseFailure
		n.logger.Error("no records parsed from %s form", res.Form)
		return res
	}

	n.logger.Info("normalized %d records (%s form, %d skipped)", len(res.Records), res.Form, res.Skipped)
	return res
}

// array parses the whole text as one JSON array. Invalid JSON fails the
// whole load; elements that are not objects are kept as empty records so
// that positions match the source.
func (n *Normalizer) array(text string) Result {
	res := Result{Form: FormArray}

	if !gjson.Valid(text) {
		n.logger.Error("failed to parse json array")
		return res
	}

	i := 0
	gjson.Parse(text).ForEach(func(_, v gjson.Result) bool {
		rec, err := record.Decode(v)
		if err != nil {
			n.logger.Warn("array element %d: %s", i, err)
		}
		res.Records = append(res.Records, rec)
		i++
		return true
	})

	return res
}

// lines parses one record per physical line. See fallbackMinLines for the
// single-object heuristic; when it succeeds all per-line progress is
// discarded.
func (n *Normalizer) lines(text string) Result {
	res := Result{Form: FormLines}
	lines := strings.Split(text, "\n")
	wholeTried := false

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !wholeTried && len(lines) > fallbackMinLines && strings.HasSuffix(line, continuationMarker) {
			wholeTried = true
			if rec, err := record.Parse(text); err == nil {
				n.logger.Debug("line %d ends with %q, parsed whole text as one object", i+1, continuationMarker)
				res.Records = []record.Record{rec}
				res.Form = FormSingleObject
				res.Skipped = 0
				return res
			}
		}

		res.Lines++
		rec, err := record.Parse(line)
		if err != nil {
			res.Skipped++
			n.logger.Warn("skipped malformed json line %d: %s", i+1, err)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res
}

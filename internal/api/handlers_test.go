// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/telemetryreplay/internal/playback/playbacktest"
	"github.com/ZSC714725/telemetryreplay/internal/session"
	"github.com/ZSC714725/telemetryreplay/internal/sink"
	"github.com/ZSC714725/telemetryreplay/internal/source"
)

func jsonLines(n int) string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf(`{"timestamp": %d.5, "dht11": {"temperature": 2%d, "humidity": 40}}`, 1700000000+i, i))
	}
	return strings.Join(lines, "\n")
}

type fixture struct {
	router  *gin.Engine
	store   session.Store
	sched   *playbacktest.Scheduler
	logPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logPath := filepath.Join(t.TempDir(), "sensor_log.json")
	require.NoError(t, os.WriteFile(logPath, []byte(jsonLines(5)), 0o644))

	sched := playbacktest.New()
	store := session.NewStore(session.StoreConfig{Scheduler: sched})
	t.Cleanup(store.Close)

	h := NewHandler(HandlerConfig{
		Store:    store,
		Readings: source.File{Path: logPath},
	})
	return &fixture{
		router:  NewRouter(h, nil),
		store:   store,
		sched:   sched,
		logPath: logPath,
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) add(t *testing.T, id, data string) Session {
	t.Helper()
	body, err := json.Marshal(SessionConfigRequest{ID: id, Data: data})
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/api/v1/session", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var s Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestReadings(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jsonLines(5), w.Body.String())

	legacy := f.do(http.MethodGet, "/api/readings", "")
	assert.Equal(t, http.StatusOK, legacy.Code)

	require.NoError(t, os.Remove(f.logPath))
	w = f.do(http.MethodGet, "/api/v1/readings", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Log file not found","data":[]}`, w.Body.String())
}

func TestAddSession(t *testing.T) {
	f := newFixture(t)

	s := f.add(t, "s1", jsonLines(3))
	assert.Equal(t, "s1", s.ID)
	require.NotNil(t, s.State)
	assert.Equal(t, "paused", s.State.State)
	assert.Equal(t, 0, s.State.Index)
	assert.Equal(t, 3, s.State.Length)
	assert.Equal(t, 1700000000.5, s.State.Timestamp)
	require.NotNil(t, s.Load)
	assert.Equal(t, "Loaded 3 records", s.Load.Message)
	require.NotNil(t, s.Config)
	assert.Equal(t, 30, s.Config.WindowSize)
}

func TestAddSessionFromReadings(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/session", `{"id": "file", "source": "readings"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := decode[Session](t, w)
	assert.Equal(t, 5, s.State.Length)

	w = f.do(http.MethodPost, "/api/v1/session", `{"source": "sqlite"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/session", `{"source": "ftp"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, os.Remove(f.logPath))
	w = f.do(http.MethodPost, "/api/v1/session", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddSessionErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/session", `{"data": "   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "No data available", decode[ErrorResponse](t, w).Message)

	w = f.do(http.MethodPost, "/api/v1/session", `{"data": "not json"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Failed to parse records", decode[ErrorResponse](t, w).Message)

	w = f.do(http.MethodPost, "/api/v1/session", `{"data": "{\"x\": 1}", "groups": ["bogus"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/session", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.add(t, "dup", jsonLines(1))
	body, _ := json.Marshal(SessionConfigRequest{ID: "dup", Data: jsonLines(1)})
	w = f.do(http.MethodPost, "/api/v1/session", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Session exists", decode[ErrorResponse](t, w).Message)
}

func TestCommandAndState(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c", jsonLines(6))

	w := f.do(http.MethodPut, "/api/v1/session/c/command", `{"command": "play"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	state := decode[SessionState](t, f.do(http.MethodGet, "/api/v1/session/c/state", ""))
	assert.Equal(t, "playing", state.State)
	assert.Equal(t, "play", state.Order)
	assert.Equal(t, 1, state.Index)

	w = f.do(http.MethodPut, "/api/v1/session/c/command", `{"command": "seek", "index": 4}`)
	require.Equal(t, http.StatusOK, w.Code)
	f.sched.Drain()

	state = decode[SessionState](t, f.do(http.MethodGet, "/api/v1/session/c/state", ""))
	assert.Equal(t, "paused", state.State)
	assert.Equal(t, 4, state.Index)
	assert.Equal(t, uint64(1), state.Stats.Seeks)
	assert.Equal(t, 1700000004.5, state.Timestamp)

	f.do(http.MethodPut, "/api/v1/session/c/command", `{"command": "reset"}`)
	state = decode[SessionState](t, f.do(http.MethodGet, "/api/v1/session/c/state", ""))
	assert.Equal(t, 0, state.Index)
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t)
	f.add(t, "c", jsonLines(2))

	w := f.do(http.MethodPut, "/api/v1/session/c/command", `{"command": "rewind"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown command", decode[ErrorResponse](t, w).Message)

	w = f.do(http.MethodPut, "/api/v1/session/c/command", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/v1/session/nope/command", `{"command": "play"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/session/nope/state", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoadData(t *testing.T) {
	f := newFixture(t)
	f.add(t, "d", jsonLines(2))

	w := f.do(http.MethodPut, "/api/v1/session/d/data", `[{"timestamp": 5}, {"timestamp": 6}, {"timestamp": 7}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[Session](t, w).State.Length)

	w = f.do(http.MethodPut, "/api/v1/session/d/data", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPut, "/api/v1/session/none/data", jsonLines(1))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWindowAndReport(t *testing.T) {
	f := newFixture(t)
	f.add(t, "w", jsonLines(4))
	f.do(http.MethodPut, "/api/v1/session/w/command", `{"command": "play"}`)
	f.sched.Drain()

	series := decode[[]sink.Series](t, f.do(http.MethodGet, "/api/v1/session/w/window", ""))
	require.NotEmpty(t, series)
	assert.Equal(t, "dht11", string(series[0].Group))
	require.Len(t, series[0].Values, 2)
	temps := series[0].Values[0]
	require.Len(t, temps, 30)
	assert.False(t, temps[25].Valid)
	assert.Equal(t, 20.0, temps[26].Float64)
	assert.Equal(t, 23.0, temps[29].Float64)

	report := decode[SessionReport](t, f.do(http.MethodGet, "/api/v1/session/w/report", ""))
	assert.Equal(t, uint64(4), report.Frames["dht11"])
	require.Len(t, report.Log, 3)
	assert.Equal(t, "Loaded 4 records", report.Log[0][1])
	assert.Equal(t, "Playing", report.Log[1][1])
	assert.Equal(t, "Reached end of log", report.Log[2][1])
	assert.Equal(t, "Reached end of log", report.Last)
	assert.NotZero(t, report.LogSince)
}

func TestAddSessionAutoplay(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/session", `{"id": "on", "autoplay": true, "data": `+fmt.Sprintf("%q", jsonLines(3))+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "playing", decode[Session](t, w).State.State)

	w = f.do(http.MethodPost, "/api/v1/session", `{"id": "unset", "data": `+fmt.Sprintf("%q", jsonLines(3))+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paused", decode[Session](t, w).State.State)
}

func TestAddSessionAutoplayOptOut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	on := true
	store := session.NewStore(session.StoreConfig{
		Defaults:  session.Config{Autoplay: &on},
		Scheduler: playbacktest.New(),
	})
	t.Cleanup(store.Close)
	f := &fixture{router: NewRouter(NewHandler(HandlerConfig{Store: store}), nil), store: store}

	w := f.do(http.MethodPost, "/api/v1/session", `{"id": "off", "autoplay": false, "data": `+fmt.Sprintf("%q", jsonLines(3))+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[Session](t, w)
	assert.Equal(t, "paused", got.State.State)
	require.NotNil(t, got.Config.Autoplay)
	assert.False(t, *got.Config.Autoplay)

	w = f.do(http.MethodPost, "/api/v1/session", `{"id": "default", "data": `+fmt.Sprintf("%q", jsonLines(3))+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "playing", decode[Session](t, w).State.State)
}

func TestListGetDelete(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", jsonLines(1))
	f.add(t, "b", jsonLines(1))

	list := decode[[]Session](t, f.do(http.MethodGet, "/api/v1/session?filter=state", ""))
	assert.Len(t, list, 2)
	for _, s := range list {
		assert.Nil(t, s.Config)
		assert.NotNil(t, s.State)
	}

	list = decode[[]Session](t, f.do(http.MethodGet, "/api/v1/session?id=a,%20x", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	got := decode[Session](t, f.do(http.MethodGet, "/api/v1/session/a?filter=report", ""))
	assert.NotNil(t, got.Report)
	assert.Nil(t, got.State)

	system := decode[SystemResponse](t, f.do(http.MethodGet, "/api/v1/system", ""))
	assert.Equal(t, 2, system.Sessions)

	w := f.do(http.MethodDelete, "/api/v1/session/a", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/api/v1/session/a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodDelete, "/api/v1/session/a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	f.add(t, "e", jsonLines(3))

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/session/e/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	// the sse renderer appends a charset
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"), resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	next := func() (string, string) {
		var name string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				return name, strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
		return "", ""
	}

	name, data := next()
	require.Equal(t, sink.EventPosition, name)
	assert.JSONEq(t, `{"index":0,"length":3,"timestamp":1700000000.5}`, data)

	require.NoError(t, f.store.Command("e", session.CommandPlay, 0))

	var names []string
	for len(names) < 4 {
		name, _ := next()
		require.NotEmpty(t, name)
		names = append(names, name)
	}
	assert.Equal(t, []string{sink.EventState, sink.EventStatus, sink.EventFrame, sink.EventPosition}, names)
}

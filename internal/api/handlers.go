// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/normalize"
	"github.com/ZSC714725/telemetryreplay/internal/session"
	"github.com/ZSC714725/telemetryreplay/internal/sink"
	"github.com/ZSC714725/telemetryreplay/internal/source"
	"github.com/ZSC714725/telemetryreplay/internal/sysstat"
)

// Handler holds dependencies
type Handler struct {
	store    session.Store
	readings source.Source // 原始日志文件
	archive  source.Source // sqlite 归档，可为空
	system   sysstat.Sampler
	logger   logger.Logger
}

// HandlerConfig for NewHandler
type HandlerConfig struct {
	Store    session.Store
	Readings source.Source
	Archive  source.Source
	System   sysstat.Sampler
	Logger   logger.Logger
}

// NewHandler creates API handler
func NewHandler(config HandlerConfig) *Handler {
	h := &Handler{
		store:    config.Store,
		readings: config.Readings,
		archive:  config.Archive,
		system:   config.System,
		logger:   config.Logger,
	}
	if h.system == nil {
		h.system = sysstat.NewSampler()
	}
	if h.logger == nil {
		h.logger = logger.Nop()
	}
	return h
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// loadErrResp maps normalizer and source errors
func loadErrResp(c *gin.Context, err error) {
	switch {
	case errors.Is(err, normalize.ErrNoData):
		errResp(c, http.StatusUnprocessableEntity, "No data available", err.Error())
	case errors.Is(err, normalize.ErrUnrecognizedForm), errors.Is(err, normalize.ErrParseFailure):
		errResp(c, http.StatusUnprocessableEntity, "Failed to parse records", err.Error())
	case errors.Is(err, source.ErrNotFound):
		errResp(c, http.StatusNotFound, "Log not found", err.Error())
	case errors.Is(err, source.ErrPathNotAllowed):
		errResp(c, http.StatusForbidden, "Log path not allowed", err.Error())
	default:
		errResp(c, http.StatusInternalServerError, "Reading log failed", err.Error())
	}
}

// Readings GET /api/v1/readings
func (h *Handler) Readings(c *gin.Context) {
	if h.readings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Log file not found", "data": []interface{}{}})
		return
	}

	text, err := h.readings.Text(c.Request.Context())
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log file not found", "data": []interface{}{}})
			return
		}
		h.logger.Error("reading %s: %s", h.readings, err)
		errResp(c, http.StatusInternalServerError, "Reading log failed", err.Error())
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(text))
}

// System GET /api/v1/system
func (h *Handler) System(c *gin.Context) {
	c.JSON(http.StatusOK, SystemResponse{
		Process:  h.system.Current(),
		Sessions: len(h.store.List(nil, "")),
	})
}

// AddSession POST /api/v1/session
func (h *Handler) AddSession(c *gin.Context) {
	var req SessionConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	raw := req.Data
	if raw == "" {
		src, err := h.source(req.Source)
		if err != nil {
			errResp(c, http.StatusBadRequest, "Invalid source", err.Error())
			return
		}
		if raw, err = src.Text(c.Request.Context()); err != nil {
			loadErrResp(c, err)
			return
		}
	}

	sess, err := h.store.Add(requestToConfig(&req), raw)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExists):
			errResp(c, http.StatusBadRequest, "Session exists", err.Error())
		case errors.Is(err, session.ErrInvalidGroup):
			errResp(c, http.StatusBadRequest, "Invalid config", err.Error())
		default:
			loadErrResp(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, sessionToAPI(sess, "config,state"))
}

func (h *Handler) source(name string) (source.Source, error) {
	switch name {
	case "", SourceReadings:
		if h.readings != nil {
			return h.readings, nil
		}
	case SourceSQLite:
		if h.archive != nil {
			return h.archive, nil
		}
	default:
		return nil, errors.New("unknown source " + name)
	}
	return nil, errors.New("source not configured: " + name)
}

// ListSessions GET /api/v1/session
func (h *Handler) ListSessions(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")
	reference := c.DefaultQuery("reference", "")
	idStr := c.DefaultQuery("id", "")

	var ids []string
	if idStr != "" {
		ids = strings.FieldsFunc(idStr, func(r rune) bool { return r == ',' })
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	sessions := h.store.List(ids, reference)
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionToAPI(sess, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetSession GET /api/v1/session/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionToAPI(sess, c.DefaultQuery("filter", "")))
}

// DeleteSession DELETE /api/v1/session/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		errResp(c, http.StatusNotFound, "Unknown session ID", err.Error())
		return
	}
	c.JSON(http.StatusOK, "OK")
}

// LoadData PUT /api/v1/session/:id/data, the request body is the raw log
func (h *Handler) LoadData(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		errResp(c, http.StatusBadRequest, "Reading body failed", err.Error())
		return
	}

	sess, err := h.store.Load(c.Param("id"), string(raw))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			errResp(c, http.StatusNotFound, "Unknown session ID", err.Error())
			return
		}
		loadErrResp(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionToAPI(sess, "state"))
}

// Command PUT /api/v1/session/:id/command
func (h *Handler) Command(c *gin.Context) {
	id := c.Param("id")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	if err := h.store.Command(id, req.Command, req.Index); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			errResp(c, http.StatusNotFound, "Unknown session ID", err.Error())
		case errors.Is(err, session.ErrUnknownCommand):
			errResp(c, http.StatusBadRequest, "Unknown command", "Known: play, pause, reset, seek")
		default:
			errResp(c, http.StatusBadRequest, "Command failed", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// GetState GET /api/v1/session/:id/state
func (h *Handler) GetState(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionState(sess))
}

// GetWindow GET /api/v1/session/:id/window
func (h *Handler) GetWindow(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Window())
}

// GetReport GET /api/v1/session/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionReport(sess))
}

// Events GET /api/v1/session/:id/events, a server-sent event stream of
// frames, status messages, positions and state changes
func (h *Handler) Events(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	events, release := sess.Subscribe()
	defer release()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	index, length := sess.Position()
	cur, _ := sess.Current()
	c.SSEvent(sink.EventPosition, sink.PositionEvent{Index: index, Length: length, Timestamp: cur.Timestamp})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, ev.Data)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown session ID", err.Error())
		return nil, false
	}
	return sess, true
}

func requestToConfig(req *SessionConfigRequest) *session.Config {
	return &session.Config{
		ID:             req.ID,
		Reference:      req.Reference,
		Autoplay:       req.Autoplay,
		Groups:         req.Groups,
		WindowSize:     req.WindowSize,
		JournalLines:   req.JournalLines,
		MinDelayMs:     req.MinDelayMs,
		MaxDelayMs:     req.MaxDelayMs,
		NominalDelayMs: req.NominalDelayMs,
	}
}

func sessionState(sess *session.Session) *SessionState {
	status := sess.Status()
	state := &SessionState{
		Order:   sess.Order(),
		State:   status.State.String(),
		Index:   status.Index,
		Length:  status.Length,
		Since:   status.Time.Unix(),
		Runtime: int64(status.Duration.Seconds()),
		Stats: PlaybackStats{
			Plays:       status.Stats.Plays,
			Pauses:      status.Stats.Pauses,
			Seeks:       status.Stats.Seeks,
			Completions: status.Stats.Completions,
		},
	}

	if cur, ok := sess.Current(); ok && cur.HasTimestamp() {
		state.Timestamp = cur.Timestamp
		state.Time = cur.Time().Format("15:04:05")
	}
	return state
}

func sessionReport(sess *session.Session) *SessionReport {
	r := sess.Report()
	report := &SessionReport{
		CreatedAt: sess.CreatedAt,
		Load:      r.Load,
		Frames:    make(map[string]uint64, len(r.Frames)),
		Last:      r.Last,
		LogSince:  r.Since.Unix(),
		Dropped:   r.Dropped,
	}
	for g, n := range r.Frames {
		report.Frames[string(g)] = n
	}

	report.Log = make([][2]string, len(r.Log))
	for i, line := range r.Log {
		report.Log[i] = [2]string{
			line.Timestamp.Format("2006-01-02 15:04:05.000"),
			line.Data,
		}
	}
	return report
}

func sessionToAPI(sess *session.Session, filter string) Session {
	s := Session{
		ID:        sess.ID,
		Reference: sess.Reference,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt(),
	}

	includeAll := filter == ""
	if includeAll || strings.Contains(filter, "config") {
		s.Config = sess.Config
		load := sess.LoadInfo()
		s.Load = &load
	}
	if includeAll || strings.Contains(filter, "state") {
		s.State = sessionState(sess)
	}
	if includeAll || strings.Contains(filter, "report") {
		s.Report = sessionReport(sess)
	}

	return s
}

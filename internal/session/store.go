// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package session keeps the playback sessions of the server. Each session
// owns one sequencer, the sinks its frames are dispatched to and the load
// summary of the log it replays.

package session

import (
	"fmt"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/telemetryreplay/internal/logger"
	"github.com/ZSC714725/telemetryreplay/internal/normalize"
	"github.com/ZSC714725/telemetryreplay/internal/playback"
)

// Commands accepted by Store.Command
const (
	CommandPlay  = "play"
	CommandPause = "pause"
	CommandReset = "reset"
	CommandSeek  = "seek"
)

// Store manages sessions in memory
type Store interface {
	// Add normalizes raw and creates a session replaying it. Nothing is
	// created when raw yields no records; the error is one of the
	// normalize sentinels.
	Add(config *Config, raw string) (*Session, error)
	Get(id string) (*Session, error)
	List(ids []string, reference string) []*Session
	// Load replaces the sequence of a session. The current sequence is kept
	// when raw yields no records.
	Load(id, raw string) (*Session, error)
	Delete(id string) error
	// Command runs play, pause, reset or seek. index is only used by seek.
	Command(id, command string, index int) error
	Close()
}

// StoreConfig for NewStore
type StoreConfig struct {
	Defaults  Config             // session defaults, see Config
	LogFrames bool               // log every dispatched group at debug level
	Scheduler playback.Scheduler // nil: wall clock
	Logger    logger.Logger
}

type store struct {
	defaults   Config
	logFrames  bool
	scheduler  playback.Scheduler
	logger     logger.Logger
	normalizer *normalize.Normalizer
	sessions   map[string]*Session
	mu         sync.RWMutex
}

// NewStore creates a session store
func NewStore(config StoreConfig) Store {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	return &store{
		defaults:   config.Defaults,
		logFrames:  config.LogFrames,
		scheduler:  config.Scheduler,
		logger:     config.Logger,
		normalizer: normalize.New(config.Logger),
		sessions:   make(map[string]*Session),
	}
}

func (s *store) Add(config *Config, raw string) (*Session, error) {
	if config == nil {
		config = &Config{}
	}
	config.merge(s.defaults)

	groups, err := config.WindowGroups()
	if err != nil {
		return nil, err
	}

	if len(config.ID) == 0 {
		config.ID = shortuuid.New()
	}

	// large logs are parsed without holding the store
	res := s.normalizer.Normalize(raw)
	if err := res.Err(); err != nil {
		s.logger.Warn("session %s not created: %s", config.ID, res.Message())
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[config.ID]; exists {
		return nil, ErrSessionExists
	}

	log := logger.With(s.logger, "session", config.ID)
	sess := newSession(config, groups, s.scheduler, log, s.logFrames)
	sess.apply(res)

	s.sessions[config.ID] = sess
	s.logger.Info("session %s created: %s", config.ID, res.Message())

	if config.AutoplayEnabled() {
		sess.seq.Play()
		sess.setOrder(CommandPlay)
	}

	return sess, nil
}

func (s *store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *store) List(ids []string, reference string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if len(reference) > 0 && sess.Reference != reference {
			continue
		}
		if len(ids) > 0 {
			found := false
			for _, id := range ids {
				if sess.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, sess)
	}
	return out
}

func (s *store) Load(id, raw string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	res := s.normalizer.Normalize(raw)
	if err := res.Err(); err != nil {
		sess.sinks.Status(res.Message())
		return nil, err
	}

	sess.apply(res)
	s.logger.Info("session %s reloaded: %s", id, res.Message())
	return sess, nil
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	sess.close()
	delete(s.sessions, id)
	s.logger.Info("session %s deleted", id)
	return nil
}

func (s *store) Command(id, command string, index int) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	switch command {
	case CommandPlay:
		sess.seq.Play()
	case CommandPause:
		sess.seq.Pause()
	case CommandReset:
		sess.seq.Reset()
	case CommandSeek:
		sess.seq.Seek(index)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	sess.setOrder(command)
	return nil
}

func (s *store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
}

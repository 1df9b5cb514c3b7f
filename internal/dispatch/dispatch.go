// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package dispatch fans a rendered record out to the sinks subscribed to its
// sensor groups.

package dispatch

import (
	"sync"

	"github.com/ZSC714725/telemetryreplay/internal/record"
)

// Sink consumes dispatched frames and status messages
type Sink interface {
	// OnFrame receives the values of one sensor group, in the group's field
	// order. values must not be modified.
	OnFrame(group record.Group, values []record.Value)
	// OnStatus receives a human readable status line
	OnStatus(message string)
}

// FrameEnder is implemented by sinks that need to know when every group of
// a record has been dispatched, e.g. to mark the groups it did not carry.
type FrameEnder interface {
	EndFrame(rec record.Record)
}

type subscription struct {
	sink   Sink
	groups map[record.Group]bool // nil: every group
}

func (s subscription) wants(g record.Group) bool {
	return s.groups == nil || s.groups[g]
}

// Sinks is the set of sinks a record is dispatched to. Safe for concurrent use.
type Sinks struct {
	lock sync.RWMutex
	subs []subscription
}

// NewSinks creates an empty sink set
func NewSinks() *Sinks {
	return &Sinks{}
}

// Subscribe registers sink for the given groups, or for every group when
// none are given. Subscribing the same sink again replaces its groups.
func (s *Sinks) Subscribe(sink Sink, groups ...record.Group) {
	sub := subscription{sink: sink}
	if len(groups) > 0 {
		sub.groups = make(map[record.Group]bool, len(groups))
		for _, g := range groups {
			sub.groups[g] = true
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for i := range s.subs {
		if s.subs[i].sink == sink {
			s.subs[i] = sub
			return
		}
	}
	s.subs = append(s.subs, sub)
}

// Unsubscribe removes sink. It returns false if it was not subscribed.
func (s *Sinks) Unsubscribe(sink Sink) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i := range s.subs {
		if s.subs[i].sink == sink {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of subscribed sinks
func (s *Sinks) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.subs)
}

// Status sends message to every sink
func (s *Sinks) Status(message string) {
	for _, sub := range s.snapshot() {
		sub.sink.OnStatus(message)
	}
}

func (s *Sinks) snapshot() []subscription {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Dispatch emits every group present in rec to the sinks subscribed to it,
// in record.Groups order. Absent groups are not emitted. Sinks implementing
// FrameEnder are told afterwards, whether or not they received anything.
func Dispatch(rec record.Record, sinks *Sinks) {
	if sinks == nil {
		return
	}

	subs := sinks.snapshot()
	for _, rd := range rec.Readings() {
		for _, sub := range subs {
			if sub.wants(rd.Group) {
				sub.sink.OnFrame(rd.Group, rd.Values)
			}
		}
	}

	for _, sub := range subs {
		if fe, ok := sub.sink.(FrameEnder); ok {
			fe.EndFrame(rec)
		}
	}
}

// Funcs adapts plain functions to a Sink. Nil fields are skipped.
type Funcs struct {
	Frame  func(group record.Group, values []record.Value)
	Status func(message string)
}

// OnFrame implements Sink
func (f *Funcs) OnFrame(group record.Group, values []record.Value) {
	if f.Frame != nil {
		f.Frame(group, values)
	}
}

// OnStatus implements Sink
func (f *Funcs) OnStatus(message string) {
	if f.Status != nil {
		f.Status(message)
	}
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/a2a-node/agentcore"
)

// Snapshotter resolves the current Task for a task-id; satisfied by
// task.Store.Get.
type Snapshotter interface {
	Get(taskID string) (*a2a.Task, bool)
}

// Synchronizer observes events published to C3 and writes task snapshots
// through to the Checkpoint Store: every status-update is flushed
// immediately, while message/artifact-update-driven snapshots are coalesced
// to at most one write per interval, bounding write amplification. It
// implements task.Publisher so it can be fanned out to alongside the Event
// Queue Manager.
type Synchronizer struct {
	store       *Store
	snapshotter Snapshotter
	interval    time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	dirty   map[string]bool
	timers  map[string]*time.Timer
}

func NewSynchronizer(store *Store, snapshotter Snapshotter, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Synchronizer{
		store:       store,
		snapshotter: snapshotter,
		interval:    interval,
		logger:      slog.Default(),
		dirty:       make(map[string]bool),
		timers:      make(map[string]*time.Timer),
	}
}

// Publish is the task.Publisher hook: status-update events flush
// immediately, everything else schedules a coalesced flush.
func (s *Synchronizer) Publish(taskID string, ev a2a.Event) {
	if _, ok := ev.(*a2a.StatusUpdateEvent); ok {
		s.flush(taskID)
		return
	}
	s.scheduleFlush(taskID)
}

func (s *Synchronizer) scheduleFlush(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[taskID] = true
	if _, pending := s.timers[taskID]; pending {
		return
	}
	s.timers[taskID] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		delete(s.timers, taskID)
		shouldFlush := s.dirty[taskID]
		delete(s.dirty, taskID)
		s.mu.Unlock()
		if shouldFlush {
			s.flush(taskID)
		}
	})
}

func (s *Synchronizer) flush(taskID string) {
	t, ok := s.snapshotter.Get(taskID)
	if !ok {
		return
	}
	if err := s.store.PutTaskSnapshot(context.Background(), t); err != nil {
		s.logger.Warn("checkpoint flush failed", "task_id", taskID, "error", err)
	}
}

// FanoutPublisher broadcasts to multiple task.Publisher-shaped sinks, used
// to wire the Event Queue Manager and the Synchronizer off the same Task
// Manager writes.
type FanoutPublisher struct {
	Sinks []interface {
		Publish(taskID string, ev a2a.Event)
	}
}

func (f FanoutPublisher) Publish(taskID string, ev a2a.Event) {
	for _, sink := range f.Sinks {
		sink.Publish(taskID, ev)
	}
}

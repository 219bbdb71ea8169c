// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/a2a-node/agentcore"
)

// Retention defaults by terminal task state.
const (
	DefaultActiveTTL    = 7 * 24 * time.Hour
	DefaultCompletedTTL = 30 * 24 * time.Hour
	DefaultFailedTTL    = 3 * 24 * time.Hour
)

const (
	prefixTask       = "task:"
	prefixThread     = "thread:"
	prefixTaskThread = "map:task2thread:"
	prefixThreadTask = "map:thread2task:"
)

// Store is the keyed façade over a Backend implementing four keyed
// namespaces: task:<task_id>, thread:<thread_id>, and the bidirectional
// task<->thread map. It implements task.Checkpointer.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func ttlFor(state a2a.TaskState) time.Duration {
	switch state {
	case a2a.TaskStateCompleted, a2a.TaskStateRejected:
		return DefaultCompletedTTL
	case a2a.TaskStateFailed, a2a.TaskStateCanceled:
		return DefaultFailedTTL
	default:
		return DefaultActiveTTL
	}
}

// PutTaskSnapshot writes the latest Task snapshot, satisfying
// task.Checkpointer.
func (s *Store) PutTaskSnapshot(ctx context.Context, t *a2a.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, prefixTask+t.ID, data, ttlFor(t.Status.State))
}

// GetTaskSnapshot reads back the latest persisted Task snapshot.
func (s *Store) GetTaskSnapshot(ctx context.Context, taskID string) (*a2a.Task, error) {
	data, err := s.backend.Get(ctx, prefixTask+taskID)
	if err != nil {
		return nil, err
	}
	var t a2a.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTaskKeys lists the backend keys ("task:<task_id>") of every persisted
// task snapshot, terminal or not, for node startup recovery; callers filter
// by state after reading each snapshot.
func (s *Store) ListTaskKeys(ctx context.Context) ([]string, error) {
	return s.backend.ListByPrefix(ctx, prefixTask)
}

// PutWorkerState persists the opaque worker conversational state for a
// thread, and links task_id <-> thread_id bidirectionally: both sides are
// rehydrated by id, never held as a strong reference at rest.
func (s *Store) PutWorkerState(ctx context.Context, threadID, taskID string, state []byte, ttl time.Duration) error {
	if err := s.backend.Put(ctx, prefixThread+threadID, state, ttl); err != nil {
		return err
	}
	if err := s.backend.Put(ctx, prefixTaskThread+taskID, []byte(threadID), ttl); err != nil {
		return err
	}
	return s.backend.Put(ctx, prefixThreadTask+threadID, []byte(taskID), ttl)
}

func (s *Store) GetWorkerState(ctx context.Context, threadID string) ([]byte, error) {
	return s.backend.Get(ctx, prefixThread+threadID)
}

func (s *Store) ThreadForTask(ctx context.Context, taskID string) (string, error) {
	v, err := s.backend.Get(ctx, prefixTaskThread+taskID)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) TaskForThread(ctx context.Context, threadID string) (string, error) {
	v, err := s.backend.Get(ctx, prefixThreadTask+threadID)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

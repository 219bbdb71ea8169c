// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task implements the Task Store (C2) and Task Manager (C6):
// a concurrent task directory with per-task single-writer semantics and the
// sole-writer state machine that enforces valid lifecycle transitions.
package task

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/a2a-node/agentcore"
)

// Store is a concurrent mapping of task-id to task record with per-task
// mutual exclusion for writers and lock-free-ish reads (a read takes the
// per-task lock only long enough to clone). It implements a2a.TaskLookup.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	task *a2a.Task
}

func NewStore() *Store {
	return &Store{tasks: make(map[string]*entry)}
}

// Create inserts a brand-new task with the status it is given (the Task
// Manager always passes submitted), filling in a missing id or context_id,
// and returns its id.
func (s *Store) Create(t *a2a.Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ContextID == "" {
		t.ContextID = uuid.NewString()
	}
	t.CreatedAt = a2a.Now()
	t.UpdatedAt = t.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return "", fmt.Errorf("task store: task %s already exists", t.ID)
	}
	s.tasks[t.ID] = &entry{task: t}
	return t.ID, nil
}

// Get returns a deep-enough clone of a task so callers cannot mutate store
// state.
func (s *Store) Get(taskID string) (*a2a.Task, bool) {
	e := s.lookup(taskID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), true
}

// Lookup implements a2a.TaskLookup for C1's validator.
func (s *Store) Lookup(taskID string) (*a2a.Task, bool) {
	return s.Get(taskID)
}

func (s *Store) lookup(taskID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks[taskID]
}

// AppendHistory appends a message to a task's history in place.
func (s *Store) AppendHistory(taskID string, m *a2a.Message) error {
	e := s.lookup(taskID)
	if e == nil {
		return a2a.NewTaskNotFound(taskID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.task.History = append(e.task.History, m)
	e.task.UpdatedAt = a2a.Now()
	return nil
}

// AppendArtifactChunk merges an artifact-update's parts into the canonical
// artifact by id, creating it on the first (append=false) chunk.
func (s *Store) AppendArtifactChunk(taskID string, upd *a2a.ArtifactUpdateEvent) error {
	e := s.lookup(taskID)
	if e == nil {
		return a2a.NewTaskNotFound(taskID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var target *a2a.Artifact
	for _, existing := range e.task.Artifacts {
		if existing.ArtifactID == upd.Artifact.ArtifactID {
			target = existing
			break
		}
	}
	if target == nil || !upd.Append {
		if target == nil {
			target = &a2a.Artifact{ArtifactID: upd.Artifact.ArtifactID, Name: upd.Artifact.Name}
			e.task.Artifacts = append(e.task.Artifacts, target)
		} else {
			target.Parts = nil
		}
	}
	target.Parts = append(target.Parts, upd.Artifact.Parts...)
	e.task.UpdatedAt = a2a.Now()
	return nil
}

// SetStatus applies a new status, rejecting illegal transitions, and
// returns the previous status. The per-task lock makes this the
// linearization point the Task Manager relies on for its cancel tie-break.
func (s *Store) SetStatus(taskID string, status a2a.TaskStatus) (a2a.TaskStatus, error) {
	e := s.lookup(taskID)
	if e == nil {
		return a2a.TaskStatus{}, a2a.NewTaskNotFound(taskID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.task.Status
	if prev.State == status.State {
		return prev, nil
	}
	if !a2a.CanTransition(prev.State, status.State) {
		return prev, a2a.NewProtocolViolation(fmt.Sprintf("illegal transition %s -> %s", prev.State, status.State))
	}
	status.Timestamp = a2a.Now()
	e.task.Status = status
	e.task.UpdatedAt = status.Timestamp
	if status.Message != nil {
		e.task.History = append(e.task.History, status.Message)
	}
	return prev, nil
}

// WithLock runs fn holding the task's write lock, giving callers (the Task
// Manager's cancel tie-break) the same linearization point as SetStatus.
func (s *Store) WithLock(taskID string, fn func(t *a2a.Task) error) error {
	e := s.lookup(taskID)
	if e == nil {
		return a2a.NewTaskNotFound(taskID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.task)
}

// ListFilter restricts List to tasks matching ContextID (if non-empty) and
// State (if non-empty), with simple offset/limit pagination.
type ListFilter struct {
	ContextID string
	State     a2a.TaskState
	Offset    int
	Limit     int
}

// List returns clones of tasks matching filter, ordered by CreatedAt.
func (s *Store) List(filter ListFilter) []*a2a.Task {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*a2a.Task
	for _, e := range entries {
		e.mu.Lock()
		t := e.task
		match := (filter.ContextID == "" || t.ContextID == filter.ContextID) &&
			(filter.State == "" || t.Status.State == filter.State)
		var clone *a2a.Task
		if match {
			clone = t.Clone()
		}
		e.mu.Unlock()
		if match {
			out = append(out, clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Time().Before(out[j].CreatedAt.Time())
	})
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// Count returns the number of tasks currently tracked, terminal or not.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// ActiveCount returns the number of non-terminal tasks, used by /health's
// tasks_active figure.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	n := 0
	for _, e := range entries {
		e.mu.Lock()
		if !e.task.Status.State.IsTerminal() {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

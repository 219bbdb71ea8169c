// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2a-node/agentcore"
)

// Publisher delivers an event to a task's subscribers; satisfied by
// event.Manager. Kept as a narrow interface here to avoid a package cycle
// between task and event.
type Publisher interface {
	Publish(taskID string, ev a2a.Event)
}

// Checkpointer persists a task snapshot; satisfied by checkpoint.Store's
// task-keyed side. A nil Checkpointer is valid: the Manager then skips
// checkpointing entirely (useful in tests).
type Checkpointer interface {
	PutTaskSnapshot(ctx context.Context, t *a2a.Task) error
}

// Manager is the sole writer of task state transitions (C6). It wraps the
// Store with the publish-to-C3 and snapshot-to-C4 side effects every
// transition must perform, with an otel span around Create, Transition and
// Cancel.
type Manager struct {
	store        *Store
	publisher    Publisher
	checkpointer Checkpointer
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Manager)

func WithPublisher(p Publisher) Option          { return func(m *Manager) { m.publisher = p } }
func WithCheckpointer(c Checkpointer) Option     { return func(m *Manager) { m.checkpointer = c } }
func WithLogger(l *slog.Logger) Option           { return func(m *Manager) { m.logger = l } }
func WithTracer(t trace.Tracer) Option           { return func(m *Manager) { m.tracer = t } }

func NewManager(store *Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.Default(),
		tracer: otel.GetTracerProvider().Tracer("a2a/task"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Store() *Store { return m.store }

// Create creates a new task in the submitted state from an inbound message
// and emits its task-snapshot event. Only the Task Manager creates tasks.
func (m *Manager) Create(ctx context.Context, msg *a2a.Message) (*a2a.Task, error) {
	ctx, span := m.tracer.Start(ctx, "task.Manager.Create")
	defer span.End()

	t := &a2a.Task{
		ContextID: msg.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted, Timestamp: a2a.Now()},
		History:   []*a2a.Message{msg},
	}
	id, err := m.store.Create(t)
	if err != nil {
		return nil, err
	}
	msg.TaskID = id
	t.ID = id
	span.SetAttributes(attribute.String("a2a.task_id", id))
	m.logger.InfoContext(ctx, "task created", "task_id", id, "context_id", t.ContextID)

	m.publish(ctx, id, &a2a.TaskSnapshotEvent{Task: t.Clone()})
	m.checkpoint(ctx, t)
	return t, nil
}

// Get returns the current snapshot of a task.
func (m *Manager) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	t, ok := m.store.Get(taskID)
	if !ok {
		return nil, a2a.NewTaskNotFound(taskID)
	}
	return t, nil
}

// Transition applies a status change, publishing a status-update event on
// success and a checkpoint at least on every transition.
func (m *Manager) Transition(ctx context.Context, taskID string, status a2a.TaskStatus) (*a2a.Task, error) {
	ctx, span := m.tracer.Start(ctx, "task.Manager.Transition", trace.WithAttributes(
		attribute.String("a2a.task_id", taskID),
		attribute.String("a2a.to_state", string(status.State)),
	))
	defer span.End()

	if _, err := m.store.SetStatus(taskID, status); err != nil {
		span.RecordError(err)
		return nil, err
	}
	t, _ := m.store.Get(taskID)
	m.logger.InfoContext(ctx, "task transitioned", "task_id", taskID, "state", status.State)

	m.publish(ctx, taskID, &a2a.StatusUpdateEvent{
		TaskID_:   taskID,
		ContextID: t.ContextID,
		Status:    t.Status,
		IsFinal:   status.State.IsTerminal(),
	})
	m.checkpoint(ctx, t)
	return t, nil
}

// AppendMessage appends a mid-task agent message to history and publishes a
// message event.
func (m *Manager) AppendMessage(ctx context.Context, taskID string, msg *a2a.Message) error {
	if err := m.store.AppendHistory(taskID, msg); err != nil {
		return err
	}
	m.publish(ctx, taskID, &a2a.MessageEvent{Message: msg})
	return nil
}

// AppendArtifactChunk merges a chunk into the canonical artifact and
// publishes the artifact-update, preserving chunk order per I4.
func (m *Manager) AppendArtifactChunk(ctx context.Context, upd *a2a.ArtifactUpdateEvent) error {
	if err := m.store.AppendArtifactChunk(upd.TaskID_, upd); err != nil {
		return err
	}
	m.publish(ctx, upd.TaskID_, upd)
	if t, ok := m.store.Get(upd.TaskID_); ok {
		m.checkpoint(ctx, t)
	}
	return nil
}

// Cancel requests cancellation. It takes the task's write lock and either
// observes a terminal state already set (no-op, returns current task) or
// performs the canceled transition itself.
func (m *Manager) Cancel(ctx context.Context, taskID string) (*a2a.Task, error) {
	ctx, span := m.tracer.Start(ctx, "task.Manager.Cancel", trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	var alreadyTerminal bool
	var snapshot *a2a.Task
	err := m.store.WithLock(taskID, func(t *a2a.Task) error {
		if t.Status.State.IsTerminal() {
			alreadyTerminal = true
			snapshot = t.Clone()
			return nil
		}
		if !a2a.CanTransition(t.Status.State, a2a.TaskStateCanceled) {
			return a2a.NewTaskNotCancelable(taskID, t.Status.State)
		}
		t.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: a2a.Now()}
		t.UpdatedAt = t.Status.Timestamp
		snapshot = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyTerminal {
		m.logger.InfoContext(ctx, "cancel no-op on terminal task", "task_id", taskID)
		return snapshot, nil
	}

	m.logger.InfoContext(ctx, "task canceled", "task_id", taskID)
	m.publish(ctx, taskID, &a2a.StatusUpdateEvent{
		TaskID_:   taskID,
		ContextID: snapshot.ContextID,
		Status:    snapshot.Status,
		IsFinal:   true,
	})
	m.checkpoint(ctx, snapshot)
	return snapshot, nil
}

func (m *Manager) publish(ctx context.Context, taskID string, ev a2a.Event) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(taskID, ev)
}

func (m *Manager) checkpoint(ctx context.Context, t *a2a.Task) {
	if m.checkpointer == nil {
		return
	}
	if err := m.checkpointer.PutTaskSnapshot(ctx, t); err != nil {
		m.logger.WarnContext(ctx, "checkpoint write failed", "task_id", t.ID, "error", err)
	}
}

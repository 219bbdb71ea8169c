// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/task"
)

// CheckpointSink persists worker conversational state, satisfied by
// checkpoint.Store.
type CheckpointSink interface {
	PutWorkerState(ctx context.Context, threadID, taskID string, state []byte, ttl time.Duration) error
	ThreadForTask(ctx context.Context, taskID string) (string, error)
	GetWorkerState(ctx context.Context, threadID string) ([]byte, error)
}

// DefaultCancelDeadline is the grace period the Adapter waits for a
// canceled worker to yield its next item before force-terminating it.
const DefaultCancelDeadline = 5 * time.Second

// Adapter is the Worker Adapter (C5): it runs at most one worker per
// task-id, translates WorkerItems into task transitions and events via a
// fixed translation table, and snapshots worker state at the declared
// checkpoint boundaries.
type Adapter struct {
	worker     Worker
	manager    *task.Manager
	checkpoint CheckpointSink
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewAdapter(w Worker, manager *task.Manager, checkpoint CheckpointSink) *Adapter {
	return &Adapter{
		worker:     w,
		manager:    manager,
		checkpoint: checkpoint,
		logger:     slog.Default(),
		active:     make(map[string]context.CancelFunc),
	}
}

// Spawn starts a worker turn for taskID, translating its item stream into
// task/event model effects in the background. It enforces single-worker-
// per-task by refusing a second concurrent Spawn for the same id.
func (a *Adapter) Spawn(ctx context.Context, taskID string, initial *a2a.Message, resume bool) error {
	a.mu.Lock()
	if _, running := a.active[taskID]; running {
		a.mu.Unlock()
		return a2a.NewProtocolViolation("a worker turn is already running for this task")
	}
	turnCtx, cancel := context.WithCancel(ctx)
	a.active[taskID] = cancel
	a.mu.Unlock()

	var items <-chan Item
	var err error
	if resume {
		items, err = a.worker.Resume(turnCtx, taskID, initial)
	} else {
		resumedState, _ := a.loadResumedState(ctx, taskID)
		items, err = a.worker.Start(turnCtx, taskID, initial, resumedState)
	}
	if err != nil {
		a.finishTurn(taskID)
		return err
	}

	go a.drive(turnCtx, taskID, items)
	return nil
}

func (a *Adapter) loadResumedState(ctx context.Context, taskID string) ([]byte, error) {
	threadID, err := a.checkpoint.ThreadForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return a.checkpoint.GetWorkerState(ctx, threadID)
}

func (a *Adapter) drive(ctx context.Context, taskID string, items <-chan Item) {
	defer a.finishTurn(taskID)

	if _, err := a.manager.Transition(ctx, taskID, a2a.TaskStatus{State: a2a.TaskStateWorking}); err != nil {
		a.logger.Error("worker turn could not enter working", "task_id", taskID, "error", err)
	}

	chunkIndex := 0
	for item := range items {
		a.snapshot(ctx, taskID)
		if err := a.apply(ctx, taskID, item, &chunkIndex); err != nil {
			a.logger.Error("worker item application failed", "task_id", taskID, "error", err)
		}
		if item.Kind == ItemFinal || item.Kind == ItemError {
			return
		}
	}
}

// apply implements the Worker -> Events translation table.
func (a *Adapter) apply(ctx context.Context, taskID string, item Item, chunkIndex *int) error {
	switch item.Kind {
	case ItemThinking, ItemToolInvocation, ItemToolResult:
		return a.manager.AppendMessage(ctx, taskID, &a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleAgent,
			TaskID:    taskID,
			Parts:     []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: item.Text})},
		})

	case ItemPartialArtifact:
		append_ := *chunkIndex > 0
		*chunkIndex++
		return a.manager.AppendArtifactChunk(ctx, &a2a.ArtifactUpdateEvent{
			TaskID_: taskID,
			Artifact: &a2a.Artifact{
				ArtifactID: item.ArtifactID,
				Parts:      []*a2a.PartWrapper{a2a.WrapPart(item.Part)},
			},
			Append:    append_,
			LastChunk: item.IsLast,
		})

	case ItemNeedsInput:
		_, err := a.manager.Transition(ctx, taskID, a2a.TaskStatus{
			State:   a2a.TaskStateInputRequired,
			Message: &a2a.Message{MessageID: uuid.NewString(), Role: a2a.RoleAgent, TaskID: taskID, Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: item.Prompt})}},
		})
		return err

	case ItemNeedsAuth:
		_, err := a.manager.Transition(ctx, taskID, a2a.TaskStatus{State: a2a.TaskStateAuthRequired})
		return err

	case ItemFinal:
		wrapped := make([]*a2a.PartWrapper, 0, len(item.Parts))
		for _, p := range item.Parts {
			wrapped = append(wrapped, a2a.WrapPart(p))
		}
		if err := a.manager.AppendMessage(ctx, taskID, &a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleAgent,
			TaskID:    taskID,
			Parts:     wrapped,
		}); err != nil {
			return err
		}
		_, err := a.manager.Transition(ctx, taskID, a2a.TaskStatus{State: a2a.TaskStateCompleted})
		return err

	case ItemError:
		werr := &a2a.WorkerError{Kind: item.ErrorKind, Detail: item.Detail}
		_, err := a.manager.Transition(ctx, taskID, a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: &a2a.Message{MessageID: uuid.NewString(), Role: a2a.RoleAgent, TaskID: taskID, Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: werr.Error()})}},
		})
		return err

	default:
		return a2a.NewProtocolViolation("unknown worker item kind")
	}
}

func (a *Adapter) snapshot(ctx context.Context, taskID string) {
	state, err := a.worker.Snapshot(ctx, taskID)
	if err != nil || state == nil {
		return
	}
	threadID, err := a.checkpoint.ThreadForTask(ctx, taskID)
	if err != nil || threadID == "" {
		threadID = uuid.NewString()
	}
	_ = a.checkpoint.PutWorkerState(ctx, threadID, taskID, state, 0)
}

func (a *Adapter) finishTurn(taskID string) {
	a.mu.Lock()
	delete(a.active, taskID)
	a.mu.Unlock()
}

// Cancel requests cooperative cancellation and waits for the worker's turn
// to end, canceling the turn's context if it is still running after
// DefaultCancelDeadline. It does not change the task's state itself: the
// canceled transition is made by task.Manager.Cancel, and a transition the
// worker's later items attempt against that terminal state is rejected and
// logged.
func (a *Adapter) Cancel(ctx context.Context, taskID string) {
	a.mu.Lock()
	cancel, running := a.active[taskID]
	a.mu.Unlock()
	if !running {
		return
	}
	a.worker.Cancel(ctx, taskID)

	done := make(chan struct{})
	go func() {
		for {
			a.mu.Lock()
			_, stillRunning := a.active[taskID]
			a.mu.Unlock()
			if !stillRunning {
				close(done)
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(DefaultCancelDeadline):
		cancel()
	}
}

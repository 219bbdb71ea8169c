// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/task"
)

type scriptedWorker struct {
	items      []Item
	canceled   chan string
	snapshotFn func(taskID string) []byte
}

func (w *scriptedWorker) Start(ctx context.Context, taskID string, initial *a2a.Message, resumedState []byte) (<-chan Item, error) {
	out := make(chan Item, len(w.items))
	for _, it := range w.items {
		out <- it
	}
	close(out)
	return out, nil
}

func (w *scriptedWorker) Resume(ctx context.Context, taskID string, newMessage *a2a.Message) (<-chan Item, error) {
	return w.Start(ctx, taskID, newMessage, nil)
}

func (w *scriptedWorker) Cancel(ctx context.Context, taskID string) {
	if w.canceled != nil {
		w.canceled <- taskID
	}
}

func (w *scriptedWorker) Snapshot(ctx context.Context, taskID string) ([]byte, error) {
	if w.snapshotFn == nil {
		return nil, nil
	}
	return w.snapshotFn(taskID), nil
}

type fakeCheckpointSink struct {
	states map[string][]byte
	links  map[string]string
}

func newFakeCheckpointSink() *fakeCheckpointSink {
	return &fakeCheckpointSink{states: make(map[string][]byte), links: make(map[string]string)}
}

func (f *fakeCheckpointSink) PutWorkerState(ctx context.Context, threadID, taskID string, state []byte, ttl time.Duration) error {
	f.states[threadID] = state
	f.links[taskID] = threadID
	return nil
}

func (f *fakeCheckpointSink) ThreadForTask(ctx context.Context, taskID string) (string, error) {
	t, ok := f.links[taskID]
	if !ok {
		return "", a2a.NewTaskNotFound(taskID)
	}
	return t, nil
}

func (f *fakeCheckpointSink) GetWorkerState(ctx context.Context, threadID string) ([]byte, error) {
	return f.states[threadID], nil
}

func setupAdapter(t *testing.T, w Worker) (*Adapter, *task.Manager, string) {
	store := task.NewStore()
	mgr := task.NewManager(store)
	created, err := mgr.Create(context.Background(), &a2a.Message{ContextID: "ctx1"})
	require.NoError(t, err)
	adapter := NewAdapter(w, mgr, newFakeCheckpointSink())
	return adapter, mgr, created.ID
}

func waitForTerminal(t *testing.T, mgr *task.Manager, taskID string) *a2a.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := mgr.Get(context.Background(), taskID)
		require.NoError(t, err)
		if got.Status.State.IsTerminal() {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal state")
	return nil
}

func TestAdapterFinalItemCompletesTask(t *testing.T) {
	w := &scriptedWorker{items: []Item{
		{Kind: ItemFinal, Parts: []a2a.Part{&a2a.TextPart{Text: "done"}}},
	}}
	adapter, mgr, taskID := setupAdapter(t, w)

	require.NoError(t, adapter.Spawn(context.Background(), taskID, &a2a.Message{}, false))
	got := waitForTerminal(t, mgr, taskID)
	require.Equal(t, a2a.TaskStateCompleted, got.Status.State)
}

func TestAdapterErrorItemFailsTask(t *testing.T) {
	w := &scriptedWorker{items: []Item{
		{Kind: ItemError, ErrorKind: a2a.WorkerErrorToolFailed, Detail: "boom"},
	}}
	adapter, mgr, taskID := setupAdapter(t, w)

	require.NoError(t, adapter.Spawn(context.Background(), taskID, &a2a.Message{}, false))
	got := waitForTerminal(t, mgr, taskID)
	require.Equal(t, a2a.TaskStateFailed, got.Status.State)
}

func TestAdapterRefusesConcurrentSpawn(t *testing.T) {
	block := make(chan Item)
	w := &scriptedWorker{}
	adapter, _, taskID := setupAdapter(t, w)

	adapter.mu.Lock()
	adapter.active[taskID] = func() {}
	adapter.mu.Unlock()

	err := adapter.Spawn(context.Background(), taskID, &a2a.Message{}, false)
	require.Error(t, err)
	close(block)
}

func TestAdapterNeedsInputTransitions(t *testing.T) {
	w := &scriptedWorker{items: []Item{
		{Kind: ItemNeedsInput, Prompt: "more info please"},
	}}
	adapter, mgr, taskID := setupAdapter(t, w)

	require.NoError(t, adapter.Spawn(context.Background(), taskID, &a2a.Message{}, false))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		got, err := mgr.Get(context.Background(), taskID)
		require.NoError(t, err)
		if got.Status.State == a2a.TaskStateInputRequired {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task never reached input-required")
}

func TestAdapterSnapshotsWorkerState(t *testing.T) {
	w := &scriptedWorker{
		items: []Item{{Kind: ItemFinal, Parts: []a2a.Part{&a2a.TextPart{Text: "done"}}}},
		snapshotFn: func(taskID string) []byte {
			return []byte("state-" + taskID)
		},
	}
	adapter, mgr, taskID := setupAdapter(t, w)

	require.NoError(t, adapter.Spawn(context.Background(), taskID, &a2a.Message{}, false))
	waitForTerminal(t, mgr, taskID)

	sink := adapter.checkpoint.(*fakeCheckpointSink)
	threadID, err := sink.ThreadForTask(context.Background(), taskID)
	require.NoError(t, err)
	state, err := sink.GetWorkerState(context.Background(), threadID)
	require.NoError(t, err)
	require.Equal(t, []byte("state-"+taskID), state)
}

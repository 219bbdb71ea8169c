// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

type fakeSnapshotter struct {
	tasks map[string]*a2a.Task
}

func (f *fakeSnapshotter) Get(taskID string) (*a2a.Task, bool) {
	t, ok := f.tasks[taskID]
	return t, ok
}

func TestSynchronizerFlushesStatusUpdateImmediately(t *testing.T) {
	store := NewStore(NewMemoryBackend())
	snap := &fakeSnapshotter{tasks: map[string]*a2a.Task{
		"t1": {ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
	}}
	sync := NewSynchronizer(store, snap, time.Hour)

	sync.Publish("t1", &a2a.StatusUpdateEvent{TaskID_: "t1"})

	got, err := store.GetTaskSnapshot(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
}

func TestSynchronizerCoalescesNonStatusEvents(t *testing.T) {
	store := NewStore(NewMemoryBackend())
	snap := &fakeSnapshotter{tasks: map[string]*a2a.Task{
		"t1": {ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
	}}
	sync := NewSynchronizer(store, snap, 10*time.Millisecond)

	sync.Publish("t1", &a2a.MessageEvent{})
	sync.Publish("t1", &a2a.MessageEvent{})

	_, err := store.GetTaskSnapshot(context.Background(), "t1")
	require.ErrorIs(t, err, ErrNotFound, "coalesced writes must not flush synchronously")

	time.Sleep(30 * time.Millisecond)
	got, err := store.GetTaskSnapshot(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
}

func TestFanoutPublisherBroadcasts(t *testing.T) {
	var a, b []a2a.Event
	sinkA := publishFunc(func(taskID string, ev a2a.Event) { a = append(a, ev) })
	sinkB := publishFunc(func(taskID string, ev a2a.Event) { b = append(b, ev) })

	f := FanoutPublisher{Sinks: []interface {
		Publish(taskID string, ev a2a.Event)
	}{sinkA, sinkB}}

	f.Publish("t1", &a2a.MessageEvent{})
	require.Len(t, a, 1)
	require.Len(t, b, 1)
}

type publishFunc func(taskID string, ev a2a.Event)

func (f publishFunc) Publish(taskID string, ev a2a.Event) { f(taskID, ev) }

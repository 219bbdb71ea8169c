// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

type fakePublisher struct {
	events []a2a.Event
}

func (f *fakePublisher) Publish(taskID string, ev a2a.Event) {
	f.events = append(f.events, ev)
}

type fakeCheckpointer struct {
	puts int
}

func (f *fakeCheckpointer) PutTaskSnapshot(ctx context.Context, t *a2a.Task) error {
	f.puts++
	return nil
}

func TestManagerCreatePublishesSnapshot(t *testing.T) {
	pub := &fakePublisher{}
	ckpt := &fakeCheckpointer{}
	m := NewManager(NewStore(), WithPublisher(pub), WithCheckpointer(ckpt))

	got, err := m.Create(context.Background(), &a2a.Message{ContextID: "ctx1", Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: "hi"})}})
	require.NoError(t, err)
	require.Equal(t, a2a.TaskStateSubmitted, got.Status.State)
	require.Len(t, pub.events, 1)
	require.IsType(t, &a2a.TaskSnapshotEvent{}, pub.events[0])
	require.Equal(t, 1, ckpt.puts)
}

func TestManagerTransitionPublishesStatusUpdate(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(NewStore(), WithPublisher(pub))

	created, err := m.Create(context.Background(), &a2a.Message{ContextID: "ctx1"})
	require.NoError(t, err)

	got, err := m.Transition(context.Background(), created.ID, a2a.TaskStatus{State: a2a.TaskStateWorking})
	require.NoError(t, err)
	require.Equal(t, a2a.TaskStateWorking, got.Status.State)
	require.Len(t, pub.events, 2)
	su, ok := pub.events[1].(*a2a.StatusUpdateEvent)
	require.True(t, ok)
	require.False(t, su.Final())
}

func TestManagerCancelIsNoOpOnTerminal(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(NewStore(), WithPublisher(pub))

	created, err := m.Create(context.Background(), &a2a.Message{ContextID: "ctx1"})
	require.NoError(t, err)
	_, err = m.Transition(context.Background(), created.ID, a2a.TaskStatus{State: a2a.TaskStateWorking})
	require.NoError(t, err)
	_, err = m.Transition(context.Background(), created.ID, a2a.TaskStatus{State: a2a.TaskStateCompleted})
	require.NoError(t, err)

	before := len(pub.events)
	got, err := m.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.Len(t, pub.events, before, "canceling a terminal task must not publish")
}

func TestManagerCancelTransitionsActiveTask(t *testing.T) {
	pub := &fakePublisher{}
	m := NewManager(NewStore(), WithPublisher(pub))

	created, err := m.Create(context.Background(), &a2a.Message{ContextID: "ctx1"})
	require.NoError(t, err)

	got, err := m.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, a2a.TaskStateCanceled, got.Status.State)
}

func TestManagerAppendArtifactChunkChecksPoints(t *testing.T) {
	ckpt := &fakeCheckpointer{}
	m := NewManager(NewStore(), WithCheckpointer(ckpt))

	created, err := m.Create(context.Background(), &a2a.Message{ContextID: "ctx1"})
	require.NoError(t, err)

	err = m.AppendArtifactChunk(context.Background(), &a2a.ArtifactUpdateEvent{
		TaskID_:  created.ID,
		Artifact: &a2a.Artifact{ArtifactID: "a1", Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: "x"})}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, ckpt.puts)
}

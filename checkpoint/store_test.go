// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

func TestStorePutGetTaskSnapshot(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	ctx := context.Background()

	task := &a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}
	require.NoError(t, s.PutTaskSnapshot(ctx, task))

	got, err := s.GetTaskSnapshot(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
	require.Equal(t, a2a.TaskStateWorking, got.Status.State)
}

func TestStoreListTaskKeys(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	ctx := context.Background()
	require.NoError(t, s.PutTaskSnapshot(ctx, &a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}))
	require.NoError(t, s.PutTaskSnapshot(ctx, &a2a.Task{ID: "t2", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}))

	keys, err := s.ListTaskKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestStoreWorkerStateThreadTaskMapping(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	ctx := context.Background()

	require.NoError(t, s.PutWorkerState(ctx, "thread1", "task1", []byte("state"), 0))

	got, err := s.GetWorkerState(ctx, "thread1")
	require.NoError(t, err)
	require.Equal(t, []byte("state"), got)

	thread, err := s.ThreadForTask(ctx, "task1")
	require.NoError(t, err)
	require.Equal(t, "thread1", thread)

	task, err := s.TaskForThread(ctx, "thread1")
	require.NoError(t, err)
	require.Equal(t, "task1", task)
}

func TestTTLForByState(t *testing.T) {
	require.Equal(t, DefaultCompletedTTL, ttlFor(a2a.TaskStateCompleted))
	require.Equal(t, DefaultFailedTTL, ttlFor(a2a.TaskStateFailed))
	require.Equal(t, DefaultActiveTTL, ttlFor(a2a.TaskStateWorking))
}

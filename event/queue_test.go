// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

func TestPublishSubscribeReplay(t *testing.T) {
	m := NewManager(WithCapacity(4))

	m.Publish("t1", &a2a.StatusUpdateEvent{TaskID_: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}})

	sub := m.Subscribe("t1")
	defer sub.Close()

	env := <-sub.Events
	require.Equal(t, uint64(1), env.Seq)

	m.Publish("t1", &a2a.StatusUpdateEvent{TaskID_: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, IsFinal: true})
	env2 := <-sub.Events
	require.True(t, env2.Event.Final())
}

func TestResubscribeAfterSeq(t *testing.T) {
	m := NewManager(WithCapacity(8))
	for i := 0; i < 3; i++ {
		m.Publish("t1", &a2a.MessageEvent{Message: &a2a.Message{TaskID: "t1"}})
	}
	sub, catchUp := m.Resubscribe("t1", 1)
	defer sub.Close()
	require.True(t, catchUp)

	env := <-sub.Events
	require.Equal(t, uint64(2), env.Seq)
}

func TestSlowSubscriberDropped(t *testing.T) {
	m := NewManager(WithCapacity(1))
	sub := m.Subscribe("t1")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		m.Publish("t1", &a2a.MessageEvent{Message: &a2a.Message{TaskID: "t1"}})
	}
	require.Equal(t, 0, m.Stats("t1").Subscribers)
	require.NotPanics(t, func() {
		m.Publish("t1", &a2a.StatusUpdateEvent{TaskID_: "t1", IsFinal: true})
	})
}

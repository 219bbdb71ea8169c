// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/client"
	"github.com/a2a-node/agentcore/worker"
)

// fakePeer answers message/send with a completed Task whose status message
// carries the fixed reply text, and message/stream with a single final
// status-update SSE event carrying that same completed status.
func fakePeer(t *testing.T, reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req a2a.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		final := a2a.TaskStatus{
			State:   a2a.TaskStateCompleted,
			Message: &a2a.Message{MessageID: "m", Role: a2a.RoleAgent, Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: reply})}},
		}

		switch req.Method {
		case a2a.MethodMessageSend:
			resp := a2a.NewResultResponse(req.ID, a2a.Task{ID: "peer-task", Status: final})
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		case a2a.MethodMessageStream:
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			ev := &a2a.StatusUpdateEvent{TaskID_: "peer-task", Status: final, IsFinal: true}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "id: 1\nevent: status-update\ndata: %s\n\n", data)
		}
	}))
}

func TestCoordinatorSingleStep(t *testing.T) {
	peer := fakePeer(t, "42 degrees")
	defer peer.Close()

	registry := NewRegistry()
	registry.Register(Peer{BaseURL: peer.URL, Card: a2a.AgentCard{
		Skills: []a2a.AgentSkill{{Name: "weather"}},
	}})

	coord := NewCoordinator(registry, &SinglePeerPlanner{Skill: "weather"}, ConcatSynthesizer{}, func(baseURL string) *client.Client {
		return client.New(baseURL)
	})

	items, err := coord.Start(context.Background(), "outer-task", &a2a.Message{
		MessageID: "m1", Role: a2a.RoleUser, TaskID: "outer-task",
		Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: "what's the weather?"})},
	}, nil)
	require.NoError(t, err)

	var final *worker.Item
	for it := range items {
		it := it
		if it.Kind == worker.ItemFinal {
			final = &it
		}
	}
	require.NotNil(t, final)
	require.Len(t, final.Parts, 1)
	tp, ok := final.Parts[0].(*a2a.TextPart)
	require.True(t, ok)
	require.Contains(t, tp.Text, "42 degrees")
}

func TestRegistryRouteDeterministic(t *testing.T) {
	registry := NewRegistry()
	registry.Register(Peer{BaseURL: "http://a", Card: a2a.AgentCard{Skills: []a2a.AgentSkill{{Name: "x"}}}})
	registry.Register(Peer{BaseURL: "http://b", Card: a2a.AgentCard{Skills: []a2a.AgentSkill{{Name: "x"}}}})

	p1, ok1 := registry.Route(Step{StepID: "s1", TargetSkill: "x"})
	p2, ok2 := registry.Route(Step{StepID: "s1", TargetSkill: "x"})
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, p1.BaseURL, p2.BaseURL)
}

func TestRetryBudget(t *testing.T) {
	require.Equal(t, 1, retryBudget(a2a.PeerErrorTimeout))
	require.Equal(t, 1, retryBudget(a2a.PeerErrorUnreachable))
	require.Equal(t, 0, retryBudget(a2a.PeerErrorRemoteFailed))
}

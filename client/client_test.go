// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

func TestClientSend(t *testing.T) {
	task := a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req a2a.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, a2a.MethodMessageSend, req.Method)

		resp := a2a.NewResultResponse(req.ID, task)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Send(context.Background(), &a2a.Message{MessageID: "m1", Role: a2a.RoleUser})
	require.NoError(t, err)
	require.Equal(t, "t1", got.ID)
	require.Equal(t, a2a.TaskStateCompleted, got.Status.State)
}

func TestClientSendRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req a2a.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := a2a.NewErrorResponse(req.ID, a2a.NewTaskNotFound("missing"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Send(context.Background(), &a2a.Message{MessageID: "m1", Role: a2a.RoleUser})
	require.Error(t, err)

	var perr *a2a.PeerError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, a2a.PeerErrorNotFound, perr.Kind)
}

func TestClientStreamReplaysEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)

		fmt.Fprintf(w, "id: 1\nevent: status-update\ndata: %s\n\n", mustJSON(&a2a.StatusUpdateEvent{
			TaskID_: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
		}))
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprintf(w, "id: 2\nevent: status-update\ndata: %s\n\n", mustJSON(&a2a.StatusUpdateEvent{
			TaskID_: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, IsFinal: true,
		}))
		if flusher != nil {
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	out, errs := c.Stream(context.Background(), &a2a.Message{MessageID: "m1", TaskID: "t1", Role: a2a.RoleUser})

	var envs []a2a.EventEnvelope
	for env := range out {
		envs = append(envs, env)
	}
	require.NoError(t, <-errs)
	require.Len(t, envs, 2)
	require.True(t, envs[1].Event.Final())
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

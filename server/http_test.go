// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

func newTestServer() *httptest.Server {
	d, _ := newTestDispatcher()
	srv := NewServer(d, a2a.AgentCard{Name: "test-agent", Version: "0.0.1"})
	return httptest.NewServer(srv.Handler())
}

func TestHTTPAgentCard(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/agent.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	require.Equal(t, "test-agent", card.Name)
}

func TestHTTPHealth(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

// wireRequest/wireResponse mirror a2a.JSONRPCRequest/Response's wire tags
// with plain json.RawMessage fields, sidestepping the jsontext.Value type
// used internally so the test can build/parse requests with encoding/json.
type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type wireResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      any              `json:"id,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *a2a.JSONRPCError `json:"error,omitempty"`
}

func TestHTTPMessageSendRPC(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	reqBody := wireRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  a2a.MethodMessageSend,
		Params: mustMarshal(&a2a.Message{
			Role:  a2a.RoleUser,
			Parts: []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: "hi"})},
		}),
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpcResp wireResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.Nil(t, rpcResp.Error)

	var task a2a.Task
	require.NoError(t, json.Unmarshal(rpcResp.Result, &task))
	require.NotEmpty(t, task.ID)
}

func TestHTTPUnknownMethod(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	reqBody := wireRequest{JSONRPC: "2.0", ID: 1, Method: "bogus/method"}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp wireResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

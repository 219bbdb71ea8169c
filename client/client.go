// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/a2a-node/agentcore"
)

// DefaultResubscribeAttempts and backoff bounds.
const (
	DefaultResubscribeAttempts = 3
	MinBackoff                 = 500 * time.Millisecond
	MaxBackoff                 = 4 * time.Second
)

// Timeouts holds this client's connect, total-call, and stream-idle
// durations. Only Total is applied, as the deadline of each unary call
// (Send, Cancel); Connect and StreamIdle are not applied, and Stream has no
// deadline of its own.
type Timeouts struct {
	Connect    time.Duration
	Total      time.Duration
	StreamIdle time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Connect: 3 * time.Second, Total: 30 * time.Second, StreamIdle: 60 * time.Second}
}

// Client is the Peer Client (C9).
type Client struct {
	BaseURL      string
	Cards        *CardResolver
	hc           *http.Client
	invoke       Invoker
	timeouts     Timeouts
}

func New(baseURL string, interceptors ...Interceptor) *Client {
	hc := &http.Client{}
	c := &Client{
		BaseURL:  baseURL,
		Cards:    NewCardResolver(hc),
		hc:       hc,
		timeouts: DefaultTimeouts(),
	}
	c.invoke = Chain(func(req *http.Request) (*http.Response, error) { return hc.Do(req) }, interceptors...)
	return c
}

func (c *Client) rpc(ctx context.Context, method string, params any) (*a2a.JSONRPCResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Total)
	defer cancel()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(a2a.JSONRPCRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.invoke(req)
	if err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorUnreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorProtocol, Detail: err.Error()}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorAuth, HTTPStatus: resp.StatusCode}
	}

	var rpcResp a2a.JSONRPCResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorProtocol, Detail: err.Error()}
	}
	return &rpcResp, nil
}

// Send implements send(base_url, message) -> Task.
func (c *Client) Send(ctx context.Context, msg *a2a.Message) (*a2a.Task, error) {
	resp, err := c.rpc(ctx, a2a.MethodMessageSend, msg)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, rpcToPeerError(resp.Error)
	}
	var t a2a.Task
	if err := remarshal(resp.Result, &t); err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorProtocol, Detail: err.Error()}
	}
	return &t, nil
}

// Cancel implements cancel(base_url, task_id) -> Task.
func (c *Client) Cancel(ctx context.Context, taskID string) (*a2a.Task, error) {
	resp, err := c.rpc(ctx, a2a.MethodTasksCancel, map[string]string{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, rpcToPeerError(resp.Error)
	}
	var t a2a.Task
	if err := remarshal(resp.Result, &t); err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorProtocol, Detail: err.Error()}
	}
	return &t, nil
}

// Stream implements stream(base_url, message) -> async iterator of Events:
// it opens an SSE connection and, on disconnect while a last-event-id is
// known, auto-resubscribes up to DefaultResubscribeAttempts times with
// exponential backoff, to the task id carried by the events received so far
// (msg.TaskID until one arrives).
func (c *Client) Stream(ctx context.Context, msg *a2a.Message) (<-chan a2a.EventEnvelope, <-chan error) {
	out := make(chan a2a.EventEnvelope)
	errs := make(chan error, 1)

	go func() {
		defer close(out)

		lastSeq := uint64(0)
		haveLast := false
		attempt := 0
		method := a2a.MethodMessageStream
		params := any(msg)
		taskID := msg.TaskID

		for {
			err := c.openStream(ctx, method, params, func(env a2a.EventEnvelope) error {
				lastSeq = env.Seq
				haveLast = true
				if id := env.Event.TaskID(); id != "" {
					taskID = id
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return ctx.Err()
				}
				if env.Event.Final() {
					return io.EOF
				}
				return nil
			})
			if err == nil || err == io.EOF {
				errs <- nil
				return
			}
			if ctx.Err() != nil || !haveLast || attempt >= DefaultResubscribeAttempts {
				errs <- err
				return
			}
			attempt++
			backoff := MinBackoff << (attempt - 1)
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			method = a2a.MethodTasksResubscribe
			params = map[string]any{"task_id": taskID, "last_event_id": lastSeq}
		}
	}()

	return out, errs
}

func (c *Client) openStream(ctx context.Context, method string, params any, emit func(a2a.EventEnvelope) error) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(a2a.JSONRPCRequest{JSONRPC: a2a.JSONRPCVersion, ID: uuid.NewString(), Method: method, Params: paramsJSON})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.invoke(req)
	if err != nil {
		return &a2a.PeerError{Kind: a2a.PeerErrorUnreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &a2a.PeerError{Kind: a2a.PeerErrorProtocol, HTTPStatus: resp.StatusCode}
	}

	return readSSE(resp.Body, emit)
}

func rpcToPeerError(e *a2a.JSONRPCError) error {
	kind := a2a.PeerErrorRemoteFailed
	switch e.Code {
	case a2a.CodeTaskNotFound:
		kind = a2a.PeerErrorNotFound
	case a2a.CodeAuthenticationRequired:
		kind = a2a.PeerErrorAuth
	}
	return &a2a.PeerError{Kind: kind, RPCCode: e.Code, Detail: e.Message}
}

func remarshal(v any, target any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the SSE Handler (C8): it upgrades an HTTP
// response to an SSE stream, subscribes to the Event Queue, formats the
// canonical id:/event:/data: framing with periodic heartbeats, and handles
// disconnect and resubscribe.
package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/a2a-node/agentcore"
)

// HeartbeatInterval bounds how long an idle stream can go without a
// keepalive comment.
const HeartbeatInterval = 15 * time.Second

// EventSource is the subscription surface the SSE Handler drives. An
// *event.Subscription does not implement it directly; callers wrap one in
// ChanSource.
type EventSource interface {
	Chan() <-chan a2a.EventEnvelope
	Close()
}

// ChanSource adapts an *event.Subscription's Events channel and Close func
// to EventSource without transport importing event (avoiding a cycle);
// callers wrap it inline.
type ChanSource struct {
	Events <-chan a2a.EventEnvelope
	Cancel func()
}

func (c ChanSource) Chan() <-chan a2a.EventEnvelope { return c.Events }
func (c ChanSource) Close()                         { c.Cancel() }

// WriteStream upgrades w to an SSE stream and writes every envelope from
// src until it closes or the request context is done, emitting heartbeat
// comments on HeartbeatInterval idle ticks. Any prelude envelopes are
// written first, immediately after the upgrade, before src is drained; a
// resubscribe whose last_event_id predates the retained window uses this
// to deliver a fresh task snapshot ahead of the resumed live events.
func WriteStream(w http.ResponseWriter, r *http.Request, src EventSource, prelude ...a2a.EventEnvelope) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("sse: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	defer src.Close()

	for _, env := range prelude {
		if err := writeEvent(w, env); err != nil {
			return err
		}
		flusher.Flush()
	}

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	events := src.Chan()
	for {
		select {
		case <-r.Context().Done():
			return r.Context().Err()

		case env, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, env); err != nil {
				return err
			}
			flusher.Flush()
			ticker.Reset(HeartbeatInterval)
			if env.Event.Final() {
				return nil
			}

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ":keepalive\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, env a2a.EventEnvelope) error {
	data, err := sonic.ConfigDefault.Marshal(env.Event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", env.Seq, env.Event.Kind(), data)
	return err
}

// LastEventID parses the client's Last-Event-ID header, used on reconnect
// to treat the request as equivalent to tasks/resubscribe(task_id, n).
func LastEventID(r *http.Request) (uint64, bool) {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		return 0, false
	}
	var n uint64
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

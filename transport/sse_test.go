// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2a-node/agentcore"
)

func TestWriteStreamFramesEvents(t *testing.T) {
	events := make(chan a2a.EventEnvelope, 2)
	events <- a2a.EventEnvelope{Seq: 1, Event: &a2a.MessageEvent{Message: &a2a.Message{MessageID: "m1"}}}
	events <- a2a.EventEnvelope{Seq: 2, Event: &a2a.StatusUpdateEvent{TaskID_: "t1", IsFinal: true}}
	close(events)

	src := ChanSource{Events: events, Cancel: func() {}}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	err := WriteStream(rr, req, src)
	require.NoError(t, err)

	resp := rr.Result()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := rr.Body.String()
	require.Contains(t, body, "id: 1")
	require.Contains(t, body, "event: message")
	require.Contains(t, body, "id: 2")
	require.Contains(t, body, "event: status-update")
}

func TestWriteStreamStopsOnFinalEvent(t *testing.T) {
	events := make(chan a2a.EventEnvelope, 3)
	events <- a2a.EventEnvelope{Seq: 1, Event: &a2a.StatusUpdateEvent{TaskID_: "t1", IsFinal: true}}
	events <- a2a.EventEnvelope{Seq: 2, Event: &a2a.MessageEvent{Message: &a2a.Message{MessageID: "m2"}}}
	closedCh := make(chan struct{})

	src := ChanSource{Events: events, Cancel: func() { close(closedCh) }}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	err := WriteStream(rr, req, src)
	require.NoError(t, err)

	body := rr.Body.String()
	require.Contains(t, body, "id: 1")
	require.NotContains(t, body, "id: 2", "stream must stop at the first final event")

	select {
	case <-closedCh:
	default:
		t.Fatal("expected src.Close to be called")
	}
}

func TestLastEventIDParsesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Last-Event-ID", "42")

	n, ok := LastEventID(req)
	require.True(t, ok)
	require.Equal(t, uint64(42), n)
}

func TestLastEventIDMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	_, ok := LastEventID(req)
	require.False(t, ok)
}

func scanLines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"encoding/json"
	"fmt"
)

// Event is a tagged variant emitted on a task's event stream. Concrete
// variants are TaskSnapshotEvent, MessageEvent, StatusUpdateEvent, and
// ArtifactUpdateEvent.
type Event interface {
	Kind() string
	TaskID() string
	Final() bool
}

// TaskSnapshotEvent carries a full Task, emitted at stream start and on
// resubscribe.
type TaskSnapshotEvent struct {
	Task *Task `json:"task"`
}

func (e *TaskSnapshotEvent) Kind() string   { return "task-snapshot" }
func (e *TaskSnapshotEvent) TaskID() string { return e.Task.ID }
func (e *TaskSnapshotEvent) Final() bool    { return false }

// MessageEvent carries a Message produced by the agent mid-task.
type MessageEvent struct {
	Message *Message `json:"message"`
}

func (e *MessageEvent) Kind() string   { return "message" }
func (e *MessageEvent) TaskID() string { return e.Message.TaskID }
func (e *MessageEvent) Final() bool    { return false }

// StatusUpdateEvent reports a task's lifecycle transition.
type StatusUpdateEvent struct {
	TaskID_   string     `json:"task_id"`
	ContextID string     `json:"context_id"`
	Status    TaskStatus `json:"status"`
	IsFinal   bool       `json:"final"`
}

func (e *StatusUpdateEvent) Kind() string   { return "status-update" }
func (e *StatusUpdateEvent) TaskID() string { return e.TaskID_ }
func (e *StatusUpdateEvent) Final() bool    { return e.IsFinal }

// ArtifactUpdateEvent carries one chunk of an Artifact.
type ArtifactUpdateEvent struct {
	TaskID_   string    `json:"task_id"`
	ContextID string    `json:"context_id"`
	Artifact  *Artifact `json:"artifact"`
	Append    bool      `json:"append"`
	LastChunk bool      `json:"last_chunk"`
}

func (e *ArtifactUpdateEvent) Kind() string   { return "artifact-update" }
func (e *ArtifactUpdateEvent) TaskID() string { return e.TaskID_ }
func (e *ArtifactUpdateEvent) Final() bool    { return false }

// EventEnvelope pairs an Event with its per-task monotonic sequence number,
// the value used verbatim as the SSE "id:" field.
type EventEnvelope struct {
	Seq   uint64
	Event Event
}

// MarshalJSON renders the envelope's event payload only; Kind and Seq are
// carried out-of-band by the SSE framer, which puts the event kind in the
// "event:" line, not the JSON body.
func (e EventEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Event)
}

// DecodeEvent reconstructs an Event from its kind discriminator and raw
// JSON body, used by the Peer Client when consuming another node's stream.
func DecodeEvent(kind string, data []byte) (Event, error) {
	switch kind {
	case "task-snapshot":
		var e TaskSnapshotEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case "message":
		var e MessageEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case "status-update":
		var e StatusUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case "artifact-update":
		var e ArtifactUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("event: unknown kind %q", kind)
	}
}

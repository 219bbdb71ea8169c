// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is a tagged-union content unit: text, file, or data. Concrete
// implementations are TextPart, FilePart, and DataPart.
type Part interface {
	Kind() string
	Meta() map[string]any
	Validate() error
}

// TextPart carries a Unicode string.
type TextPart struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *TextPart) Kind() string          { return "text" }
func (p *TextPart) Meta() map[string]any  { return p.Metadata }
func (p *TextPart) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text part: text must not be empty")
	}
	return nil
}

// FilePart carries inline bytes or a URI, never both.
type FilePart struct {
	Name        string         `json:"name,omitempty"`
	MimeType    string         `json:"mime_type"`
	InlineBytes []byte         `json:"bytes,omitempty"`
	URI         string         `json:"uri,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (p *FilePart) Kind() string         { return "file" }
func (p *FilePart) Meta() map[string]any { return p.Metadata }
func (p *FilePart) Validate() error {
	hasBytes := len(p.InlineBytes) > 0
	hasURI := p.URI != ""
	if hasBytes == hasURI {
		return fmt.Errorf("file part: exactly one of inline bytes or uri must be set")
	}
	if p.MimeType == "" {
		return fmt.Errorf("file part: mime_type is required")
	}
	return nil
}

// DataPart carries an arbitrary JSON value.
type DataPart struct {
	Data     any            `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *DataPart) Kind() string         { return "data" }
func (p *DataPart) Meta() map[string]any { return p.Metadata }
func (p *DataPart) Validate() error {
	if p.Data == nil {
		return fmt.Errorf("data part: data must not be nil")
	}
	return nil
}

// PartWrapper marshals and unmarshals a Part through its "kind" discriminator.
type PartWrapper struct {
	Part Part
}

func WrapPart(p Part) *PartWrapper { return &PartWrapper{Part: p} }

func (w PartWrapper) MarshalJSON() ([]byte, error) {
	if w.Part == nil {
		return []byte("null"), nil
	}
	var payload map[string]any
	raw, err := json.Marshal(w.Part)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	payload["kind"] = w.Part.Kind()
	return json.Marshal(payload)
}

func (w *PartWrapper) UnmarshalJSON(data []byte) error {
	var disc struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return fmt.Errorf("part: decode discriminator: %w", err)
	}
	switch disc.Kind {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		w.Part = &p
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		w.Part = &p
	case "data":
		var p DataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		w.Part = &p
	default:
		return fmt.Errorf("part: unknown kind %q", disc.Kind)
	}
	return nil
}

// Message is an ordered, non-empty sequence of Parts produced by a user or
// an agent.
type Message struct {
	MessageID        string         `json:"message_id"`
	Role             Role           `json:"role"`
	Parts            []*PartWrapper `json:"parts"`
	TaskID           string         `json:"task_id,omitempty"`
	ContextID        string         `json:"context_id,omitempty"`
	ReferenceTaskIDs []string       `json:"reference_task_ids,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message: message_id is required")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("message: unknown role %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message: parts must not be empty")
	}
	for i, p := range m.Parts {
		if p == nil || p.Part == nil {
			return fmt.Errorf("message: part %d is nil", i)
		}
		if err := p.Part.Validate(); err != nil {
			return fmt.Errorf("message: part %d: %w", i, err)
		}
	}
	return nil
}

// Text concatenates every TextPart in the message, in order.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.Part.(*TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// Artifact is a task's structured output, possibly streamed in chunks that
// share an ArtifactID.
type Artifact struct {
	ArtifactID string         `json:"artifact_id"`
	Name       string         `json:"name,omitempty"`
	Parts      []*PartWrapper `json:"parts"`
}

func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact: artifact_id is required")
	}
	for i, p := range a.Parts {
		if p == nil || p.Part == nil {
			return fmt.Errorf("artifact: part %d is nil", i)
		}
		if err := p.Part.Validate(); err != nil {
			return fmt.Errorf("artifact: part %d: %w", i, err)
		}
	}
	return nil
}

// TaskState is a node in the task lifecycle state machine.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether state admits no further transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

// transitions enumerates the allowed edges of the state machine.
var transitions = map[TaskState]map[TaskState]bool{
	TaskStateSubmitted: {
		TaskStateWorking:  true,
		TaskStateCanceled: true,
		TaskStateRejected: true,
		TaskStateFailed:   true,
	},
	TaskStateWorking: {
		TaskStateInputRequired: true,
		TaskStateAuthRequired:  true,
		TaskStateCompleted:     true,
		TaskStateFailed:        true,
		TaskStateCanceled:      true,
	},
	TaskStateInputRequired: {
		TaskStateWorking:  true,
		TaskStateCanceled: true,
		TaskStateFailed:   true,
	},
	TaskStateAuthRequired: {
		TaskStateWorking:  true,
		TaskStateCanceled: true,
		TaskStateFailed:   true,
	},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to TaskState) bool {
	edges, ok := transitions[from]
	return ok && edges[to]
}

// TaskStatus is the current lifecycle state of a Task, optionally carrying a
// message (e.g. an input-required prompt).
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp Timestamp  `json:"timestamp"`
}

// Task is the unit of work: an append-only history of Messages, an ordered
// set of Artifacts, and a current TaskStatus.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"context_id"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history"`
	Artifacts []*Artifact    `json:"artifacts,omitempty"`
	CreatedAt Timestamp      `json:"created_at"`
	UpdatedAt Timestamp      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to a caller without letting
// it mutate the store's internal slices.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.History = append([]*Message(nil), t.History...)
	c.Artifacts = append([]*Artifact(nil), t.Artifacts...)
	return &c
}

// AgentCapabilities advertises optional node capabilities.
type AgentCapabilities struct {
	Streaming               bool `json:"streaming"`
	PushNotifications       bool `json:"push_notifications"`
	StateTransitionHistory  bool `json:"state_transition_history"`
	SynchronousCompletion   bool `json:"synchronous_completion"`
}

// AgentSkill describes one capability a node advertises for routing (used
// by orchestrators for capability-based peer lookup).
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	InputModes  []string `json:"input_modes,omitempty"`
	OutputModes []string `json:"output_modes,omitempty"`
}

// AgentProvider identifies the organization behind a node.
type AgentProvider struct {
	Organization string `json:"organization,omitempty"`
	URL          string `json:"url,omitempty"`
}

// AgentCard is the public descriptor served at /.well-known/agent.json.
type AgentCard struct {
	Name                  string            `json:"name"`
	Version               string            `json:"version"`
	Description           string            `json:"description,omitempty"`
	Endpoints             []string          `json:"endpoints,omitempty"`
	Skills                []AgentSkill      `json:"skills,omitempty"`
	Capabilities          AgentCapabilities `json:"capabilities"`
	AuthenticationSchemes []string          `json:"authentication_schemes,omitempty"`
	Provider              *AgentProvider    `json:"provider,omitempty"`
}

// Checkpoint is a persisted snapshot pairing a task snapshot with the
// worker's opaque conversational state.
type Checkpoint struct {
	ThreadID    string    `json:"thread_id"`
	TaskID      string    `json:"task_id"`
	WorkerState []byte    `json:"worker_state,omitempty"`
	Timestamp   Timestamp `json:"timestamp"`
}

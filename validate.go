// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"mime"
	"unicode/utf8"
)

// TaskLookup resolves an existing task by id for ValidateIncomingMessage's
// task_id check, satisfied by task.Store in practice.
type TaskLookup interface {
	Lookup(taskID string) (*Task, bool)
}

// ValidateIncomingMessage implements C1's validate_incoming_message: it
// rejects empty parts, unknown part variants, non-UTF-8 text, invalid mime
// types, inline+uri both set (or neither), role != user on inbound, and a
// task_id naming an unknown task. A task_id naming a terminal task is
// accepted here: the dispatcher's task_id resolution rule routes it to a
// freshly created task rather than treating it as an error.
func ValidateIncomingMessage(m *Message, lookup TaskLookup) error {
	if m == nil {
		return NewInvalidParams("message must not be nil")
	}
	if m.Role != RoleUser {
		return NewInvalidParams("inbound message role must be user")
	}
	if len(m.Parts) == 0 {
		return NewInvalidParams("parts must not be empty")
	}
	for i, pw := range m.Parts {
		if pw == nil || pw.Part == nil {
			return NewInvalidParams("part is missing or has unknown kind")
		}
		if err := pw.Part.Validate(); err != nil {
			return NewInvalidParams(err.Error())
		}
		if tp, ok := pw.Part.(*TextPart); ok {
			if !utf8.ValidString(tp.Text) {
				return NewInvalidParams("part is not valid UTF-8")
			}
		}
		if fp, ok := pw.Part.(*FilePart); ok {
			if _, _, err := mime.ParseMediaType(fp.MimeType); err != nil {
				return NewInvalidParams("file part: invalid mime type")
			}
		}
		_ = i
	}
	if m.TaskID != "" && lookup != nil {
		if _, ok := lookup.Lookup(m.TaskID); !ok {
			return NewTaskNotFound(m.TaskID)
		}
	}
	return nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPartWrapperRoundTrip(t *testing.T) {
	cases := []Part{
		&TextPart{Text: "hello"},
		&FilePart{Name: "f.txt", MimeType: "text/plain", URI: "https://example.com/f.txt"},
		&DataPart{Data: map[string]any{"rate": 1.08}},
	}
	for _, want := range cases {
		wrapped := WrapPart(want)
		raw, err := json.Marshal(wrapped)
		require.NoError(t, err)

		var got PartWrapper
		require.NoError(t, json.Unmarshal(raw, &got))
		if diff := cmp.Diff(want, got.Part); diff != "" {
			t.Errorf("part round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestMessageValidate(t *testing.T) {
	m := &Message{
		MessageID: "m1",
		Role:      RoleUser,
		Parts:     []*PartWrapper{WrapPart(&TextPart{Text: "hi"})},
	}
	require.NoError(t, m.Validate())

	empty := &Message{MessageID: "m2", Role: RoleUser}
	require.Error(t, empty.Validate())
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(TaskStateSubmitted, TaskStateWorking))
	require.False(t, CanTransition(TaskStateCompleted, TaskStateWorking))
	require.True(t, CanTransition(TaskStateInputRequired, TaskStateWorking))
	require.False(t, CanTransition(TaskStateSubmitted, TaskStateInputRequired))
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/worker"
)

// echoWorker is the zero-dependency default Worker: it immediately emits
// the initial message's text back as the final answer. Useful for
// smoke-testing the protocol surface with no peers or LLM configured.
type echoWorker struct{}

func (echoWorker) Start(ctx context.Context, taskID string, initial *a2a.Message, resumedState []byte) (<-chan worker.Item, error) {
	items := make(chan worker.Item, 1)
	items <- worker.Item{Kind: worker.ItemFinal, Parts: []a2a.Part{&a2a.TextPart{Text: textOf(initial)}}}
	close(items)
	return items, nil
}

func (echoWorker) Resume(ctx context.Context, taskID string, newMessage *a2a.Message) (<-chan worker.Item, error) {
	items := make(chan worker.Item, 1)
	items <- worker.Item{Kind: worker.ItemFinal, Parts: []a2a.Part{&a2a.TextPart{Text: textOf(newMessage)}}}
	close(items)
	return items, nil
}

func (echoWorker) Cancel(ctx context.Context, taskID string) {}

func (echoWorker) Snapshot(ctx context.Context, taskID string) ([]byte, error) { return nil, nil }

func textOf(m *a2a.Message) string {
	for _, w := range m.Parts {
		if tp, ok := w.Part.(*a2a.TextPart); ok {
			return tp.Text
		}
	}
	return ""
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/event"
	"github.com/a2a-node/agentcore/task"
	"github.com/a2a-node/agentcore/worker"
)

// Dispatcher is the Message Dispatcher (C7): it decodes JSON-RPC requests,
// routes to handlers, and assembles unary or streaming responses.
type Dispatcher struct {
	Tasks    *task.Manager
	Events   *event.Manager
	Workers  *worker.Adapter
	Push     *PushConfigStore
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewDispatcher(tasks *task.Manager, events *event.Manager, workers *worker.Adapter, push *PushConfigStore) *Dispatcher {
	return &Dispatcher{
		Tasks:   tasks,
		Events:  events,
		Workers: workers,
		Push:    push,
		logger:  slog.Default(),
		tracer:  otel.GetTracerProvider().Tracer("a2a/server"),
	}
}

// resolveTask implements the dispatcher's task_id resolution rule: reuse a
// present, non-terminal task-id; otherwise create one. A task_id naming a
// terminal task gets a brand-new task with the same context_id.
func (d *Dispatcher) resolveTask(ctx context.Context, msg *a2a.Message) (*a2a.Task, bool, error) {
	if msg.TaskID != "" {
		t, err := d.Tasks.Get(ctx, msg.TaskID)
		if err == nil && !t.Status.State.IsTerminal() {
			return t, true, nil
		}
		if err == nil && t.Status.State.IsTerminal() {
			msg.TaskID = ""
			if msg.ContextID == "" {
				msg.ContextID = t.ContextID
			}
		}
	}
	t, err := d.Tasks.Create(ctx, msg)
	return t, false, err
}

// HandleMessageSend implements message/send: validate, resolve/create the
// task, spawn the worker, and return the current (possibly non-terminal)
// snapshot immediately, per this node's synchronousCompletion=false
// declaration.
func (d *Dispatcher) HandleMessageSend(ctx context.Context, msg *a2a.Message) (*a2a.Task, error) {
	ctx, span := d.tracer.Start(ctx, "server.Dispatcher.HandleMessageSend")
	defer span.End()

	if err := a2a.ValidateIncomingMessage(msg, d.Tasks.Store()); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	t, reused, err := d.resolveTask(ctx, msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("a2a.task_id", t.ID))

	if reused {
		if err := d.Tasks.AppendMessage(ctx, t.ID, msg); err != nil {
			return nil, err
		}
		if err := d.Workers.Spawn(ctx, t.ID, msg, true); err != nil {
			return nil, err
		}
	} else {
		if err := d.Workers.Spawn(ctx, t.ID, msg, false); err != nil {
			return nil, err
		}
	}
	return d.Tasks.Get(ctx, t.ID)
}

// HandleMessageStream implements message/stream: it opens the SSE
// subscription before spawning the worker so the first emitted event, the
// task snapshot, is observable, then returns the subscription for the
// transport layer to drain.
func (d *Dispatcher) HandleMessageStream(ctx context.Context, msg *a2a.Message) (*event.Subscription, error) {
	ctx, span := d.tracer.Start(ctx, "server.Dispatcher.HandleMessageStream")
	defer span.End()

	if err := a2a.ValidateIncomingMessage(msg, d.Tasks.Store()); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	t, reused, err := d.resolveTask(ctx, msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("a2a.task_id", t.ID))

	sub := d.Events.Subscribe(t.ID)

	if reused {
		if err := d.Tasks.AppendMessage(ctx, t.ID, msg); err != nil {
			sub.Close()
			return nil, err
		}
		if err := d.Workers.Spawn(ctx, t.ID, msg, true); err != nil {
			sub.Close()
			return nil, err
		}
	} else {
		if err := d.Workers.Spawn(ctx, t.ID, msg, false); err != nil {
			sub.Close()
			return nil, err
		}
	}
	return sub, nil
}

// HandleTasksGet implements tasks/get.
func (d *Dispatcher) HandleTasksGet(ctx context.Context, taskID string) (*a2a.Task, error) {
	return d.Tasks.Get(ctx, taskID)
}

// HandleTasksCancel implements tasks/cancel.
func (d *Dispatcher) HandleTasksCancel(ctx context.Context, taskID string) (*a2a.Task, error) {
	t, err := d.Tasks.Cancel(ctx, taskID)
	if err != nil {
		return nil, err
	}
	d.Workers.Cancel(ctx, taskID)
	return t, nil
}

// HandleTasksResubscribe implements tasks/resubscribe: events with
// sequence > last_event_id are replayed from the retained window; if that
// window has already rolled past last_event_id, the subscriber still gets
// a subscription but a fresh task-snapshot must be sent first by the
// caller (see server/http.go) for the catch_up=false case.
func (d *Dispatcher) HandleTasksResubscribe(ctx context.Context, taskID string, lastEventID uint64) (*event.Subscription, bool, error) {
	if _, err := d.Tasks.Get(ctx, taskID); err != nil {
		return nil, false, err
	}
	sub, catchUp := d.Events.Resubscribe(taskID, lastEventID)
	return sub, catchUp, nil
}

// HandlePushConfigSet implements tasks/pushNotificationConfig/set.
func (d *Dispatcher) HandlePushConfigSet(ctx context.Context, cfg PushNotificationConfig) error {
	if _, err := d.Tasks.Get(ctx, cfg.TaskID); err != nil {
		return err
	}
	d.Push.Set(cfg)
	return nil
}

// HandlePushConfigGet implements tasks/pushNotificationConfig/get.
func (d *Dispatcher) HandlePushConfigGet(ctx context.Context, taskID string) (PushNotificationConfig, error) {
	return d.Push.Get(taskID)
}

// HandlePushConfigList implements tasks/pushNotificationConfig/list.
func (d *Dispatcher) HandlePushConfigList(ctx context.Context) []PushNotificationConfig {
	return d.Push.List()
}

// HandlePushConfigDelete implements tasks/pushNotificationConfig/delete.
func (d *Dispatcher) HandlePushConfigDelete(ctx context.Context, taskID string) {
	d.Push.Delete(taskID)
}

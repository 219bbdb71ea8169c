// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/client"
	"github.com/a2a-node/agentcore/worker"
)

// DefaultConcurrency bounds how many steps this coordinator dispatches in
// parallel.
const DefaultConcurrency = 4

// ClientFactory builds (or returns a cached) Peer Client bound to baseURL.
type ClientFactory func(baseURL string) *client.Client

// Coordinator is the Orchestrator Coordinator (C10). It implements
// worker.Worker so it plugs into the same Worker Adapter (C5) every other
// worker does.
type Coordinator struct {
	Registry    *Registry
	Planner     Planner
	Synthesizer Synthesizer
	Concurrency int
	NewClient   ClientFactory
	Logger      *slog.Logger

	mu      sync.Mutex
	clients map[string]*client.Client
	turns   map[string]*turn
}

// turn tracks one outer task's in-flight plan execution, including a
// cancel func so Cancel can cascade to every dispatched peer task.
type turn struct {
	cancel    context.CancelFunc
	items     chan worker.Item
	mu        sync.Mutex
	peerTasks map[string]peerTask // step_id -> dispatched peer task
}

type peerTask struct {
	baseURL string
	taskID  string
}

func NewCoordinator(registry *Registry, planner Planner, synthesizer Synthesizer, newClient ClientFactory) *Coordinator {
	return &Coordinator{
		Registry:    registry,
		Planner:     planner,
		Synthesizer: synthesizer,
		Concurrency: DefaultConcurrency,
		NewClient:   newClient,
		Logger:      slog.Default(),
		clients:     make(map[string]*client.Client),
		turns:       make(map[string]*turn),
	}
}

func (c *Coordinator) clientFor(baseURL string) *client.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[baseURL]; ok {
		return cl
	}
	cl := c.NewClient(baseURL)
	c.clients[baseURL] = cl
	return cl
}

// Start implements worker.Worker: plan, then execute.
func (c *Coordinator) Start(ctx context.Context, taskID string, initial *a2a.Message, resumedState []byte) (<-chan worker.Item, error) {
	turnCtx, cancel := context.WithCancel(ctx)
	t := &turn{cancel: cancel, items: make(chan worker.Item, 8), peerTasks: make(map[string]peerTask)}
	c.mu.Lock()
	c.turns[taskID] = t
	c.mu.Unlock()

	go c.run(turnCtx, taskID, initial, t)
	return t.items, nil
}

// Resume forwards a new user message to the peer/step that emitted
// input-required or auth-required. Since this coordinator does not yet
// persist which step is awaiting input across a process restart
// (resumedState carries only the Snapshot blob, unused here), Resume only
// works within the same process lifetime as Start.
func (c *Coordinator) Resume(ctx context.Context, taskID string, newMessage *a2a.Message) (<-chan worker.Item, error) {
	c.mu.Lock()
	t, ok := c.turns[taskID]
	c.mu.Unlock()
	if !ok {
		return nil, a2a.NewProtocolViolation("no orchestrator turn to resume for this task")
	}

	t.mu.Lock()
	var waitingStep string
	var waiting *peerTask
	for stepID, pt := range t.peerTasks {
		pt := pt
		waitingStep, waiting = stepID, &pt
		break
	}
	t.mu.Unlock()
	if waiting == nil {
		return nil, a2a.NewProtocolViolation("no peer step is awaiting input")
	}

	items := make(chan worker.Item, 4)
	go func() {
		defer close(items)

		cl := c.clientFor(waiting.baseURL)
		newMessage.TaskID = waiting.taskID
		parts, failed, detail, suspended := forwardStream(ctx, cl, newMessage, waitingStep, nil, items)

		if suspended {
			// Still waiting on the same peer task; leave the turn and its
			// peerTasks entry in place for the next Resume.
			return
		}

		t.mu.Lock()
		delete(t.peerTasks, waitingStep)
		t.mu.Unlock()
		c.finishTurn(taskID)

		if failed {
			emitError(items, a2a.WorkerErrorToolFailed, detail)
			return
		}
		items <- worker.Item{Kind: worker.ItemFinal, Parts: parts}
	}()
	return items, nil
}

func (c *Coordinator) Cancel(ctx context.Context, taskID string) {
	c.mu.Lock()
	t, ok := c.turns[taskID]
	c.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	peers := make([]peerTask, 0, len(t.peerTasks))
	for _, pt := range t.peerTasks {
		peers = append(peers, pt)
	}
	t.mu.Unlock()

	for _, pt := range peers {
		_, _ = c.clientFor(pt.baseURL).Cancel(ctx, pt.taskID)
	}
	t.cancel()
}

// Snapshot returns nil: the coordinator's state is the live turn goroutine
// and the peer tasks it spawned (themselves checkpointed by their own
// nodes), not a blob this node needs to persist.
func (c *Coordinator) Snapshot(ctx context.Context, taskID string) ([]byte, error) {
	return nil, nil
}

// finishTurn retires taskID's turn. Called only on genuine completion or
// failure; a suspended turn (a peer step awaiting input/auth) stays in
// c.turns so Resume can still find it.
func (c *Coordinator) finishTurn(taskID string) {
	c.mu.Lock()
	delete(c.turns, taskID)
	c.mu.Unlock()
}

func (c *Coordinator) run(ctx context.Context, taskID string, initial *a2a.Message, t *turn) {
	defer close(t.items)

	skills := c.Registry.knownSkills()
	plan, err := c.Planner.Plan(ctx, initial, skills)
	if err != nil {
		emitError(t.items, a2a.WorkerErrorPlanningFailed, err.Error())
		c.finishTurn(taskID)
		return
	}

	outcomes, failed, suspended := c.execute(ctx, taskID, plan, t)
	if suspended {
		// A dispatched step is awaiting input/auth; the turn and its
		// peerTasks entry stay registered for Resume.
		return
	}
	if failed {
		c.finishTurn(taskID)
		return
	}

	parts, err := c.Synthesizer.Synthesize(ctx, initial, outcomes)
	if err != nil {
		emitError(t.items, a2a.WorkerErrorPlanningFailed, err.Error())
		c.finishTurn(taskID)
		return
	}
	t.items <- worker.Item{Kind: worker.ItemFinal, Parts: parts}
	c.finishTurn(taskID)
}

// execute dispatches plan.Steps respecting DependsOn, fans out up to
// c.Concurrency at a time, and returns outcomes in plan order regardless of
// completion order. The second return is true if a required step failed;
// the third is true if a step suspended on input-required/auth-required
// (outcomes is nil in both cases — the turn hasn't produced a final answer).
func (c *Coordinator) execute(ctx context.Context, taskID string, plan *Plan, t *turn) ([]StepOutcome, bool, bool) {
	outcomes := make(map[string]StepOutcome, len(plan.Steps))
	var mu sync.Mutex
	done := make(map[string]bool, len(plan.Steps))

	sem := make(chan struct{}, c.Concurrency)
	var wg sync.WaitGroup
	failedRequired := false
	suspended := false

	ready := func(s Step) bool {
		for _, dep := range s.DependsOn {
			if !done[dep] {
				return false
			}
		}
		return true
	}

	remaining := len(plan.Steps)
	for remaining > 0 {
		dispatchedThisRound := false
		for _, step := range plan.Steps {
			mu.Lock()
			alreadyDone := done[step.StepID]
			isReady := ready(step)
			mu.Unlock()
			if alreadyDone || !isReady {
				continue
			}
			dispatchedThisRound = true

			wg.Add(1)
			sem <- struct{}{}
			go func(step Step) {
				defer wg.Done()
				defer func() { <-sem }()

				outcome := c.dispatchStep(ctx, taskID, step, t)
				mu.Lock()
				outcomes[step.StepID] = outcome
				done[step.StepID] = true
				if outcome.Failed && step.Required {
					failedRequired = true
				}
				if outcome.Suspended {
					suspended = true
				}
				mu.Unlock()
			}(step)
		}
		wg.Wait()

		mu.Lock()
		remaining = 0
		for _, s := range plan.Steps {
			if !done[s.StepID] {
				remaining++
			}
		}
		stuck := !dispatchedThisRound && remaining > 0
		mu.Unlock()
		if stuck || failedRequired || suspended {
			break
		}
	}

	if suspended {
		return nil, false, true
	}

	if failedRequired {
		var failedStep string
		for _, s := range plan.Steps {
			if o, ok := outcomes[s.StepID]; ok && o.Failed && s.Required {
				failedStep = s.StepID
				break
			}
		}
		emitError(t.items, a2a.WorkerErrorToolFailed, fmt.Sprintf("required step %s failed", failedStep))
		return nil, true, false
	}

	ordered := make([]StepOutcome, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		if o, ok := outcomes[s.StepID]; ok {
			ordered = append(ordered, o)
		}
	}
	return ordered, false, false
}

// retryBudget implements the default retry policy: 1 retry on
// timeout/unreachable, 0 on remote_failed.
func retryBudget(kind a2a.PeerErrorKind) int {
	switch kind {
	case a2a.PeerErrorTimeout, a2a.PeerErrorUnreachable:
		return 1
	default:
		return 0
	}
}

func (c *Coordinator) dispatchStep(ctx context.Context, taskID string, step Step, t *turn) StepOutcome {
	peer, ok := c.Registry.Route(step)
	if !ok {
		return StepOutcome{StepID: step.StepID, Failed: true, Detail: fmt.Sprintf("no peer advertises skill %q", step.TargetSkill)}
	}

	attempts := 0
	for {
		outcome := c.dispatchOnce(ctx, taskID, step, peer, t)
		if !outcome.Failed {
			return outcome
		}
		perr, isPeerErr := lastPeerError(outcome.Detail)
		if !isPeerErr || attempts >= retryBudget(perr) {
			return outcome
		}
		attempts++
	}
}

// dispatchOnce issues a single streaming dispatch: the peer task is created
// by the message/stream call itself (msg.TaskID is left empty), its id is
// learned from the stream's first snapshot event, and every subsequent
// event is forwarded over the same call.
func (c *Coordinator) dispatchOnce(ctx context.Context, taskID string, step Step, peer Peer, t *turn) StepOutcome {
	cl := c.clientFor(peer.BaseURL)
	c.Registry.markDispatched(peer.BaseURL)

	msg := &a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleUser,
		Parts:     []*a2a.PartWrapper{a2a.WrapPart(&a2a.TextPart{Text: step.Description})},
	}

	onTaskID := func(peerTaskID string) {
		t.mu.Lock()
		t.peerTasks[step.StepID] = peerTask{baseURL: peer.BaseURL, taskID: peerTaskID}
		t.mu.Unlock()
	}

	parts, failed, detail, suspended := forwardStream(ctx, cl, msg, step.StepID, onTaskID, t.items)
	c.Registry.markDone(peer.BaseURL, failed)

	if !suspended {
		t.mu.Lock()
		delete(t.peerTasks, step.StepID)
		t.mu.Unlock()
	}

	return StepOutcome{StepID: step.StepID, Parts: parts, Failed: failed, Detail: detail, Suspended: suspended}
}

// forwardStream consumes a peer's event stream, forwarding every non-final
// message as a thinking item prefixed with stepID, and returns the last
// agent message's parts as the step's output. onTaskID, if non-nil, is
// called once with the peer task's id as soon as it is known (from the
// stream's first snapshot event) — the mechanism that lets a dispatch learn
// the id a single streaming call created instead of a separate send call.
// A peer status-update of input-required or auth-required stops the stream
// early (suspended=true) instead of blocking on events that will never
// arrive before the outer task itself suspends.
func forwardStream(ctx context.Context, cl *client.Client, msg *a2a.Message, stepID string, onTaskID func(taskID string), out chan<- worker.Item) (parts []a2a.Part, failed bool, detail string, suspended bool) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, errs := cl.Stream(streamCtx, msg)

	var lastParts []a2a.Part
	for env := range events {
		switch ev := env.Event.(type) {
		case *a2a.MessageEvent:
			lastParts = unwrapParts(ev.Message.Parts)
			out <- worker.Item{Kind: worker.ItemThinking, Text: prefixed(stepID, textOf(ev.Message))}
		case *a2a.StatusUpdateEvent:
			if ev.Status.Message != nil {
				lastParts = unwrapParts(ev.Status.Message.Parts)
			}
			switch ev.Status.State {
			case a2a.TaskStateFailed:
				return nil, true, "peer task failed", false
			case a2a.TaskStateInputRequired:
				out <- worker.Item{Kind: worker.ItemNeedsInput, Prompt: prefixed(stepID, promptText(ev.Status.Message))}
				return lastParts, false, "", true
			case a2a.TaskStateAuthRequired:
				out <- worker.Item{Kind: worker.ItemNeedsAuth, AuthScheme: prefixed(stepID, "auth required")}
				return lastParts, false, "", true
			}
		case *a2a.TaskSnapshotEvent:
			if onTaskID != nil {
				onTaskID(ev.Task.ID)
			}
			if ev.Task.Status.State.IsTerminal() && len(ev.Task.History) > 0 {
				lastParts = unwrapParts(ev.Task.History[len(ev.Task.History)-1].Parts)
			}
		}
	}
	if err := <-errs; err != nil {
		return nil, true, err.Error(), false
	}
	return lastParts, false, "", false
}

// promptText extracts the text of an input-required status message,
// falling back to a generic prompt when the peer sent none.
func promptText(m *a2a.Message) string {
	if m == nil {
		return "waiting for input"
	}
	if text := textOf(m); text != "" {
		return text
	}
	return "waiting for input"
}

func unwrapParts(wrapped []*a2a.PartWrapper) []a2a.Part {
	parts := make([]a2a.Part, 0, len(wrapped))
	for _, w := range wrapped {
		if w != nil {
			parts = append(parts, w.Part)
		}
	}
	return parts
}

func textOf(m *a2a.Message) string {
	for _, w := range m.Parts {
		if tp, ok := w.Part.(*a2a.TextPart); ok {
			return tp.Text
		}
	}
	return ""
}

func prefixed(stepID, text string) string {
	if stepID == "" {
		return text
	}
	return fmt.Sprintf("[%s] %s", stepID, text)
}

func emitError(items chan<- worker.Item, kind a2a.WorkerErrorKind, detail string) {
	items <- worker.Item{Kind: worker.ItemError, ErrorKind: kind, Detail: detail}
}

// lastPeerError recovers the PeerErrorKind carried in a StepOutcome.Detail
// when it originated from a client.Client error, so the retry policy can
// branch on it. The Peer Client records PeerError.Error()'s "peer error
// (kind): detail" shape; this mirrors that prefix rather than threading a
// typed error through the string-keyed outcome.
func lastPeerError(detail string) (a2a.PeerErrorKind, bool) {
	for _, kind := range []a2a.PeerErrorKind{
		a2a.PeerErrorUnreachable, a2a.PeerErrorTimeout, a2a.PeerErrorAuth,
		a2a.PeerErrorProtocol, a2a.PeerErrorNotFound, a2a.PeerErrorRemoteFailed,
	} {
		if fmt.Sprintf("peer error (%s)", kind) == detail[:min(len(detail), len(fmt.Sprintf("peer error (%s)", kind)))] {
			return kind, true
		}
	}
	return "", false
}

func (r *Registry) knownSkills() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var skills []string
	for _, p := range r.peers {
		for _, s := range p.Card.Skills {
			if !seen[s.Name] {
				seen[s.Name] = true
				skills = append(skills, s.Name)
			}
		}
	}
	return skills
}

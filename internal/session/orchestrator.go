// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one streamed chat exchange at a time, from the user
// pressing Enter to the assistant message reaching a terminal status.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/api"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/stream"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/timeline"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/transcript"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle phase of the current (or last) exchange.
type State string

const (
	// StateIdle means no exchange is in flight.
	StateIdle State = "idle"

	// StateAwaitingFirstByte means the request was sent but no event has
	// arrived yet.
	StateAwaitingFirstByte State = "awaiting_first_byte"

	// StateStreaming means at least one event has been applied.
	StateStreaming State = "streaming"

	// StateCompleted means the last exchange ended with a done event.
	StateCompleted State = "completed"

	// StateErrored means the last exchange ended with an error event or a
	// transport failure.
	StateErrored State = "errored"

	// StateCancelled means the user abandoned the last exchange.
	StateCancelled State = "cancelled"
)

// ErrBusy is returned when SendMessage is called while a stream is in flight.
var ErrBusy = errors.New("a message is already streaming")

// User-facing text for failures that have no backend-provided message.
const (
	msgBackendUnreachable = "Erreur : impossible de contacter le backend."
	msgStreamInterrupted  = "Erreur : le flux a été interrompu."
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator owns the exchange state machine. It is the only writer to the
// transcript and the timeline during a stream: events are applied one at a
// time, in arrival order.
type Orchestrator struct {
	mu sync.Mutex

	client     *api.Client
	transcript *transcript.Store
	timeline   *timeline.Registry
	model      string

	state     State
	cancel    context.CancelFunc
	abandoned bool
	terminal  bool

	// Targets for the exchange in flight.
	convID string
	msgID  string

	// Callbacks, invoked while holding the lock. Keep them cheap.
	onDelta func()
	onTool  func()
}

// New creates an orchestrator bound to a backend client and the two stores.
func New(client *api.Client, store *transcript.Store, reg *timeline.Registry) *Orchestrator {
	return &Orchestrator{
		client:     client,
		transcript: store,
		timeline:   reg,
		state:      StateIdle,
	}
}

// SetModel sets the model requested on subsequent exchanges. An empty value
// lets the backend pick its default.
func (o *Orchestrator) SetModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

// Model returns the currently selected model.
func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsStreaming reports whether an exchange is in flight.
func (o *Orchestrator) IsStreaming() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateAwaitingFirstByte || o.state == StateStreaming
}

// SetDeltaCallback sets the function invoked after each content delta.
func (o *Orchestrator) SetDeltaCallback(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onDelta = fn
}

// SetToolCallback sets the function invoked after each tool event.
func (o *Orchestrator) SetToolCallback(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTool = fn
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage runs one full exchange on the calling goroutine: it records the
// user message, opens the stream, applies every event, and settles the
// assistant message into a terminal status. It returns ErrBusy if an exchange
// is already in flight, and the transport error if the stream could not be
// opened or broke mid-flight.
//
// The user message and the assistant placeholder are committed to the
// transcript before any network activity, so a connection failure still
// leaves the user's words in the conversation.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.state == StateAwaitingFirstByte || o.state == StateStreaming {
		o.mu.Unlock()
		return ErrBusy
	}

	conv := o.transcript.Current()
	if conv == nil {
		conv = o.transcript.CreateConversation()
	}

	user := chat.NewUserMessage(text)
	o.transcript.AddMessage(conv.ID, user)

	assistant := chat.NewStreamingAssistantMessage()
	o.transcript.AddMessage(conv.ID, assistant)

	o.convID = conv.ID
	o.msgID = assistant.ID
	o.state = StateAwaitingFirstByte
	o.abandoned = false
	o.terminal = false

	streamCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	req := api.ChatRequest{
		Message:        text,
		ConversationID: conv.ID,
		Model:          o.model,
		Stream:         true,
	}
	o.mu.Unlock()

	err := o.client.StreamChat(streamCtx, req, o.applyEvent)
	cancel()

	return o.settle(err)
}

// CancelStream abandons the exchange in flight. Events already applied stay
// as they are; events still in transit are discarded. No-op when idle.
func (o *Orchestrator) CancelStream() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingFirstByte && o.state != StateStreaming {
		return
	}
	o.abandoned = true
	if o.cancel != nil {
		o.cancel()
	}
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// applyEvent folds one stream event into the transcript and the timeline.
// Events arriving after abandonment or after a terminal event are discarded.
func (o *Orchestrator) applyEvent(ev stream.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.abandoned || o.terminal {
		return
	}
	if o.state == StateAwaitingFirstByte {
		o.state = StateStreaming
	}

	switch e := ev.(type) {
	case stream.ContentEvent:
		o.transcript.AppendContent(o.convID, o.msgID, e.Content)
		if o.onDelta != nil {
			o.onDelta()
		}

	case stream.ToolCallEvent:
		o.applyToolCall(e)

	case stream.ToolResultEvent:
		o.applyToolResult(e)

	case stream.DoneEvent:
		o.applyDone(e)

	case stream.ErrorEvent:
		msg := e.Message
		if msg == "" {
			msg = msgStreamInterrupted
		}
		status := chat.StatusError
		o.transcript.UpdateMessage(o.convID, o.msgID, transcript.MessagePatch{
			Status:  &status,
			Content: &msg,
		})
		o.state = StateErrored
		o.terminal = true
	}
}

// applyToolCall records a tool start in both stores. A second start with the
// same id is ignored; the first registration wins.
func (o *Orchestrator) applyToolCall(e stream.ToolCallEvent) {
	server := e.Server
	if server == "" {
		server = "unknown"
	}

	registered := o.timeline.Register(timeline.Registration{
		ID:             e.ID,
		ConversationID: o.convID,
		MessageID:      o.msgID,
		ToolName:       e.Name,
		ServerName:     server,
		Arguments:      e.Arguments,
	})
	if !registered {
		return
	}

	o.transcript.AddToolCall(o.convID, o.msgID, &chat.ToolCall{
		ID:        e.ID,
		Name:      e.Name,
		Arguments: e.Arguments,
		Status:    chat.ToolRunning,
		Server:    server,
	})
	if o.onTool != nil {
		o.onTool()
	}
}

// applyToolResult attaches an outcome to a previously started call. A result
// whose id was never started is dropped: both stores ignore unknown ids, so
// nothing is recorded.
func (o *Orchestrator) applyToolResult(e stream.ToolResultEvent) {
	status := chat.ToolSuccess
	if !e.Success {
		status = chat.ToolError
	}

	o.timeline.Update(e.ID, status, &timeline.Result{
		DurationMs:    e.DurationMs,
		ResultPreview: e.Preview,
		Success:       e.Success,
	})
	o.transcript.UpdateToolCall(o.convID, o.msgID, e.ID, transcript.ToolCallPatch{
		Status:        &status,
		ResultPreview: &e.Preview,
		Success:       &e.Success,
		DurationMs:    &e.DurationMs,
	})
	if o.onTool != nil {
		o.onTool()
	}
}

// applyDone settles the assistant message as completed. The token total is
// recomputed from prompt + completion; backends occasionally report a total
// that disagrees with its parts.
func (o *Orchestrator) applyDone(e stream.DoneEvent) {
	tokens := &chat.TokenUsage{
		Prompt:     e.Tokens.Prompt,
		Completion: e.Tokens.Completion,
		Total:      e.Tokens.Prompt + e.Tokens.Completion,
	}
	status := chat.StatusCompleted
	o.transcript.UpdateMessage(o.convID, o.msgID, transcript.MessagePatch{
		Status: &status,
		Tokens: tokens,
	})

	if e.Model != "" {
		o.transcript.SetModel(o.convID, e.Model)
	}

	o.state = StateCompleted
	o.terminal = true
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// settle decides the final state once StreamChat has returned, covering the
// paths where no terminal event was applied: user abandonment, transport
// failure, and a stream that simply stopped.
func (o *Orchestrator) settle(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancel = nil

	if o.abandoned {
		// Abandonment is not a failure: the message keeps whatever
		// content and status it had when the user gave up.
		o.state = StateCancelled
		return nil
	}

	if o.terminal {
		return nil
	}

	if err != nil {
		msg := msgBackendUnreachable
		status := chat.StatusError
		o.transcript.UpdateMessage(o.convID, o.msgID, transcript.MessagePatch{
			Status:  &status,
			Content: &msg,
		})
		o.state = StateErrored
		return err
	}

	// The stream closed cleanly without a done or error event. Release the
	// session but leave the message as the stream left it.
	o.state = StateCompleted
	return nil
}

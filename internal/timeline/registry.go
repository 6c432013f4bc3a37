// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package timeline tracks MCP tool executions live, across conversations.
//
// The registry is deliberately ephemeral: it represents "what happened live"
// during this process, while the transcript's embedded tool calls are the
// durable record. Nothing here is persisted.
package timeline

import (
	"sync"
	"time"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
)

// =============================================================================
// TOOL CALL
// =============================================================================

// ToolCall is one tool execution observed on the event stream.
type ToolCall struct {
	ID             string
	ConversationID string
	MessageID      string
	ToolName       string
	ServerName     string
	Arguments      map[string]any

	Status    chat.ToolCallStatus
	StartTime time.Time
	EndTime   time.Time

	DurationMs    int64
	ResultPreview string
	Success       bool
}

// Registration carries the fields the caller supplies when a tool starts.
// Status and start time are stamped by the registry.
type Registration struct {
	ID             string
	ConversationID string
	MessageID      string
	ToolName       string
	ServerName     string
	Arguments      map[string]any
}

// Result carries the outcome fields attached when a tool finishes.
type Result struct {
	DurationMs    int64
	ResultPreview string
	Success       bool
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the cross-conversation index of tool executions, keyed by the
// backend-issued execution id.
type Registry struct {
	mu    sync.Mutex
	calls []*ToolCall
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{calls: make([]*ToolCall, 0)}
}

// Register records a new tool execution with status running and the start
// time stamped now. Registration is idempotent per id: a duplicate start must
// not create a second row, and Register reports whether a row was added.
func (r *Registry) Register(reg Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(reg.ID) != nil {
		return false
	}
	r.calls = append(r.calls, &ToolCall{
		ID:             reg.ID,
		ConversationID: reg.ConversationID,
		MessageID:      reg.MessageID,
		ToolName:       reg.ToolName,
		ServerName:     reg.ServerName,
		Arguments:      reg.Arguments,
		Status:         chat.ToolRunning,
		StartTime:      time.Now(),
	})
	return true
}

// Update changes the status of an execution and, when res is non-nil,
// attaches its result fields. Leaving the running status stamps the end
// time. Unknown ids are ignored.
func (r *Registry) Update(id string, status chat.ToolCallStatus, res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tc := r.find(id)
	if tc == nil {
		return
	}
	tc.Status = status
	if status != chat.ToolRunning {
		tc.EndTime = time.Now()
	}
	if res != nil {
		tc.DurationMs = res.DurationMs
		tc.ResultPreview = res.ResultPreview
		tc.Success = res.Success
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// All returns every recorded execution, oldest first.
func (r *Registry) All() []*ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(*ToolCall) bool { return true })
}

// Active returns the executions currently running. Membership is derived
// from the status on every call, never tracked independently.
func (r *Registry) Active() []*ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(tc *ToolCall) bool { return tc.Status == chat.ToolRunning })
}

// ByConversation returns the executions belonging to one conversation.
func (r *Registry) ByConversation(conversationID string) []*ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(tc *ToolCall) bool { return tc.ConversationID == conversationID })
}

// ByMessage returns the executions belonging to one message.
func (r *Registry) ByMessage(messageID string) []*ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(tc *ToolCall) bool { return tc.MessageID == messageID })
}

// Get returns the execution with the given id, or nil.
func (r *Registry) Get(id string) *ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(id)
}

// =============================================================================
// CLEARING
// =============================================================================

// ClearConversation drops the executions of one conversation.
func (r *Registry) ClearConversation(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.calls[:0]
	for _, tc := range r.calls {
		if tc.ConversationID != conversationID {
			kept = append(kept, tc)
		}
	}
	r.calls = kept
}

// ClearAll drops every execution.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make([]*ToolCall, 0)
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Registry) find(id string) *ToolCall {
	for _, tc := range r.calls {
		if tc.ID == id {
			return tc
		}
	}
	return nil
}

func (r *Registry) filter(keep func(*ToolCall) bool) []*ToolCall {
	out := make([]*ToolCall, 0, len(r.calls))
	for _, tc := range r.calls {
		if keep(tc) {
			out = append(out, tc)
		}
	}
	return out
}

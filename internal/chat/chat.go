// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat contains the data structures for conversations, messages and
// tool calls.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TitleMaxLen is the maximum length of an auto-generated conversation title.
const TitleMaxLen = 50

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// STATUS TYPES
// =============================================================================

// MessageStatus tracks the lifecycle of a message.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusStreaming MessageStatus = "streaming"
	StatusCompleted MessageStatus = "completed"
	StatusError     MessageStatus = "error"
)

// ToolCallStatus tracks the lifecycle of a tool execution.
type ToolCallStatus string

const (
	ToolPending ToolCallStatus = "pending"
	ToolRunning ToolCallStatus = "running"
	ToolSuccess ToolCallStatus = "success"
	ToolError   ToolCallStatus = "error"
)

// =============================================================================
// TOKEN USAGE
// =============================================================================

// TokenUsage summarizes token consumption for one exchange.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// =============================================================================
// TOOL CALL
// =============================================================================

// ToolCall is a tool execution recorded inside an assistant message.
// Its ID matches the backend-issued execution id.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Status    ToolCallStatus `json:"status"`

	// Originating MCP server, when the backend reports one.
	Server string `json:"mcp_server,omitempty"`

	// Result fields, set when the tool finishes.
	ResultPreview string `json:"result_preview,omitempty"`
	Success       bool   `json:"success,omitempty"`
	DurationMs    int64  `json:"duration_ms,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message represents a single message in a conversation.
// Content is append-only while Status is StatusStreaming; after a terminal
// transition the message is immutable except for the fields that transition
// sets.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	Status MessageStatus `json:"status"`

	// Only assistant messages carry tool calls or token usage.
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
	Tokens    *TokenUsage `json:"tokens,omitempty"`
}

// NewUserMessage creates a user message, already completed.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Status:    StatusCompleted,
	}
}

// NewStreamingAssistantMessage creates the empty assistant placeholder that
// will be populated as deltas arrive.
func NewStreamingAssistantMessage() *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Status:    StatusStreaming,
		ToolCalls: []*ToolCall{},
	}
}

// AppendContent appends a streaming delta. Appends are only honored while the
// message is streaming; content never shrinks.
func (m *Message) AppendContent(delta string) {
	if m.Status != StatusStreaming {
		return
	}
	m.Content += delta
}

// FindToolCall returns the tool call with the given id, or nil.
func (m *Message) FindToolCall(id string) *ToolCall {
	for _, tc := range m.ToolCalls {
		if tc.ID == id {
			return tc
		}
	}
	return nil
}

// HasToolCall reports whether a tool call with the given id already exists.
func (m *Message) HasToolCall(id string) bool {
	return m.FindToolCall(id) != nil
}

// IsTerminal reports whether the message reached a terminal status.
func (m *Message) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusError
}

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation holds an ordered, append-only sequence of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation with a generated id.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     "Nouvelle conversation",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// AddMessage appends a message in send order and refreshes the timestamp.
// The title is set once, from the first user message, and never overwritten.
func (c *Conversation) AddMessage(msg *Message) {
	if len(c.Messages) == 0 && msg.Role == RoleUser {
		c.Title = TitleFromContent(msg.Content)
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// FindMessage returns the message with the given id, or nil.
func (c *Conversation) FindMessage(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// TitleFromContent derives a conversation title from a user message.
// Rune-based truncation keeps multi-byte characters intact.
func TitleFromContent(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= TitleMaxLen {
		return content
	}
	return string(runes[:TitleMaxLen]) + "..."
}

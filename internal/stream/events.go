// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "encoding/json"

// =============================================================================
// EVENT UNION
// =============================================================================

// Event is one typed protocol event decoded from a frame payload. The closed
// set of variants is ContentEvent, ToolCallEvent, ToolResultEvent, DoneEvent
// and ErrorEvent; consumers dispatch with a type switch.
type Event interface {
	isEvent()
}

// ContentEvent carries a delta of assistant text to append.
type ContentEvent struct {
	Content string
}

// ToolCallEvent signals that the backend started executing a tool.
type ToolCallEvent struct {
	ID        string
	Name      string
	Arguments map[string]any
	Server    string
}

// ToolResultEvent carries the outcome of a finished tool execution.
type ToolResultEvent struct {
	ID         string
	Name       string
	Success    bool
	Preview    string
	DurationMs int64
	Server     string
}

// Usage is the token accounting reported by the backend.
type Usage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// DoneEvent terminates the exchange with its final metadata.
type DoneEvent struct {
	ConversationID  string
	Model           string
	TotalDurationMs int64
	Tokens          Usage
}

// ErrorEvent carries a backend-reported error.
type ErrorEvent struct {
	Code    string
	Message string
}

func (ContentEvent) isEvent()    {}
func (ToolCallEvent) isEvent()   {}
func (ToolResultEvent) isEvent() {}
func (DoneEvent) isEvent()       {}
func (ErrorEvent) isEvent()      {}

// =============================================================================
// WIRE ENVELOPE
// =============================================================================

// envelope mirrors the backend's JSON frame payloads.
type envelope struct {
	Type string `json:"type"`

	Content string `json:"content"`

	ToolCall *struct {
		ID        string         `json:"id"`
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
		McpServer string         `json:"mcp_server"`
	} `json:"tool_call"`

	ToolResult *struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Success    bool   `json:"success"`
		Preview    string `json:"preview"`
		DurationMs int64  `json:"duration_ms"`
		McpServer  string `json:"mcp_server"`
	} `json:"tool_result"`

	Metadata *struct {
		ConversationID  string `json:"conversation_id"`
		Model           string `json:"model"`
		TotalDurationMs int64  `json:"total_duration_ms"`
		Tokens          Usage  `json:"tokens"`
	} `json:"metadata"`

	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseEvent interprets one frame payload.
//
// Payloads that are not well-formed JSON objects are treated as bare content
// deltas; some backends emit raw text and that must not be an error path.
// Unknown type discriminants return nil and are skipped by the caller, so
// new event kinds are never fatal.
func ParseEvent(data string) Event {
	if data == "" {
		return nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return ContentEvent{Content: data}
	}

	switch env.Type {
	case "content":
		return ContentEvent{Content: env.Content}

	case "tool_call":
		if env.ToolCall == nil {
			return nil
		}
		return ToolCallEvent{
			ID:        env.ToolCall.ID,
			Name:      env.ToolCall.Name,
			Arguments: env.ToolCall.Arguments,
			Server:    env.ToolCall.McpServer,
		}

	case "tool_result":
		if env.ToolResult == nil {
			return nil
		}
		return ToolResultEvent{
			ID:         env.ToolResult.ID,
			Name:       env.ToolResult.Name,
			Success:    env.ToolResult.Success,
			Preview:    env.ToolResult.Preview,
			DurationMs: env.ToolResult.DurationMs,
			Server:     env.ToolResult.McpServer,
		}

	case "done":
		if env.Metadata == nil {
			return nil
		}
		return DoneEvent{
			ConversationID:  env.Metadata.ConversationID,
			Model:           env.Metadata.Model,
			TotalDurationMs: env.Metadata.TotalDurationMs,
			Tokens:          env.Metadata.Tokens,
		}

	case "error":
		if env.Error == nil {
			return nil
		}
		return ErrorEvent{Code: env.Error.Code, Message: env.Error.Message}

	default:
		return nil
	}
}

// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the MCP-HIVE backend.
package api

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the request body for /chat and /chat/stream.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model,omitempty"`
	Stream         bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ToolExecution summarizes one tool run inside a non-streaming reply.
type ToolExecution struct {
	Name          string         `json:"name"`
	Arguments     map[string]any `json:"arguments"`
	ResultPreview string         `json:"result_preview"`
	DurationMs    int64          `json:"duration_ms"`
	Success       bool           `json:"success"`
}

// TokenBreakdown is the backend's token accounting.
type TokenBreakdown struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ChatResponse is the complete reply from the non-streaming /chat endpoint.
type ChatResponse struct {
	Content         string          `json:"content"`
	ConversationID  string          `json:"conversation_id"`
	Model           string          `json:"model"`
	ToolsUsed       []string        `json:"tools_used"`
	ToolExecutions  []ToolExecution `json:"tool_executions"`
	TotalDurationMs int64           `json:"total_duration_ms"`
	Tokens          TokenBreakdown  `json:"tokens"`
	Status          string          `json:"status"`
}

// HistoryMessage is one entry of a backend-side conversation history.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ConversationHistory is the reply from /chat/{id}/history.
type ConversationHistory struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []HistoryMessage `json:"messages"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// Model describes one model known to the backend.
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
	Digest     string `json:"digest"`
}

// ModelsResponse is the reply from /models and /models/installed.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// PullProgress is one progress record streamed while pulling a model.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// =============================================================================
// MCP SERVER TYPES
// =============================================================================

// Server describes one registered MCP server.
type Server struct {
	Name       string   `json:"name"`
	Transport  string   `json:"transport"`
	Connected  bool     `json:"connected"`
	Enabled    bool     `json:"enabled"`
	ToolsCount int      `json:"toolsCount"`
	Tools      []string `json:"tools"`
	LastPingMs int64    `json:"lastPingMs,omitempty"`
}

// ServerToggle is the reply from /mcp/servers/{name}/toggle.
type ServerToggle struct {
	Server  string `json:"server"`
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
}

// ServerTool describes one tool exposed by an MCP server.
type ServerTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	ServerName  string         `json:"server_name"`
}

// ServerTools is the reply from /mcp/servers/{name}/tools.
type ServerTools struct {
	Server string       `json:"server"`
	Tools  []ServerTool `json:"tools"`
}

// =============================================================================
// HEALTH TYPES
// =============================================================================

// ComponentStatus is the health of one backend component.
type ComponentStatus struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// Health is the aggregated reply from /health.
type Health struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
}

// Readiness is the reply from /health/ready.
type Readiness struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// apiError is the backend's error body shape.
type apiError struct {
	Detail string `json:"detail"`
}

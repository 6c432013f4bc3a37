// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/stream"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeInvalidResponse
)

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches two client errors by type so sentinels work with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for easy checking.
var (
	ErrBackendDown = &ClientError{Type: ErrTypeConnection, Message: "backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "resource not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// DefaultModel sent when the caller does not pick one
	DefaultModel string
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8000",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the MCP-HIVE backend. Safe for
// concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat sends the streaming chat request and calls fn for each decoded
// event, synchronously and in arrival order. It returns when the stream
// terminates, the context is cancelled, or the transport fails.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, fn func(stream.Event)) error {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	// Streaming uses a client without timeout; lifetime is bounded by ctx.
	streamClient := &http.Client{}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ClientError{Type: ErrTypeConnection, Message: "stream request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromStatus(resp, "stream request failed")
	}

	return stream.NewDecoder(resp.Body).Process(ctx, fn)
}

// =============================================================================
// NON-STREAMING CHAT
// =============================================================================

// Chat sends a chat request and returns the complete response.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	var result ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History fetches the backend-side history of a conversation.
func (c *Client) History(ctx context.Context, conversationID string) (*ConversationHistory, error) {
	var result ConversationHistory
	path := "/chat/" + url.PathEscape(conversationID) + "/history"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteConversation deletes a conversation on the backend.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/chat/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all models known to the backend.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var result ModelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// InstalledModels retrieves the locally installed models.
func (c *Client) InstalledModels(ctx context.Context) ([]Model, error) {
	var result ModelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/models/installed", nil, &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// PullModel downloads a model, reporting progress records as they stream in.
// fn may be nil when the caller only wants completion.
func (c *Client) PullModel(ctx context.Context, name string, fn func(PullProgress)) error {
	path := "/models/" + url.PathEscape(name) + "/pull"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ClientError{Type: ErrTypeConnection, Message: "pull request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromStatus(resp, "pull request failed")
	}

	decoder := stream.NewDecoder(resp.Body)
	for {
		frame, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &ClientError{Type: ErrTypeConnection, Message: "pull stream interrupted", Cause: err}
		}

		var progress PullProgress
		if json.Unmarshal([]byte(frame.Data), &progress) != nil {
			continue
		}
		if fn != nil {
			fn(progress)
		}
	}
}

// =============================================================================
// MCP SERVER OPERATIONS
// =============================================================================

// ListServers retrieves the registered MCP servers.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var result []Server
	if err := c.doJSON(ctx, http.MethodGet, "/mcp/servers", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ToggleServer enables or disables an MCP server.
func (c *Client) ToggleServer(ctx context.Context, name string, enabled bool) (*ServerToggle, error) {
	var result ServerToggle
	path := "/mcp/servers/" + url.PathEscape(name) + "/toggle"
	body := map[string]bool{"enabled": enabled}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServerToolList retrieves the tools exposed by one MCP server.
func (c *Client) ServerToolList(ctx context.Context, name string) (*ServerTools, error) {
	var result ServerTools
	path := "/mcp/servers/" + url.PathEscape(name) + "/tools"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// GetHealth retrieves the aggregated backend health.
func (c *Client) GetHealth(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ready checks backend readiness.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var result Readiness
	if err := c.doJSON(ctx, http.MethodGet, "/health/ready", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON performs one JSON request/response round trip. out may be nil when
// the body is irrelevant.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var bodyReader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return ErrBackendDown
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.errorFromStatus(resp, method+" "+path+" failed")
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// errorFromStatus builds a ClientError from a non-success response, using
// the backend's detail message when one is present.
func (c *Client) errorFromStatus(resp *http.Response, msg string) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var detail apiError
	if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: detail.Detail}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: msg + ": " + resp.Status,
	}
}

// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/stream"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(nil)
	if client.Config().BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", client.Config().BaseURL)
	}

	client = NewClientWithConfig(&ClientConfig{})
	if client.Config().BaseURL == "" || client.Config().Timeout == 0 {
		t.Error("empty config fields should be filled with defaults")
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/stream" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Message != "bonjour" || !req.Stream {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"content\",\"content\":\"salut\"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	var events []stream.Event
	err := newTestClient(srv).StreamChat(context.Background(), ChatRequest{Message: "bonjour"}, func(ev stream.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if content, ok := events[0].(stream.ContentEvent); !ok || content.Content != "salut" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestStreamChat_HTTPErrorWithDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "modèle indisponible"})
	}))
	defer srv.Close()

	err := newTestClient(srv).StreamChat(context.Background(), ChatRequest{Message: "x"}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("got %T, want *ClientError", err)
	}
	if clientErr.Message != "modèle indisponible" {
		t.Errorf("Message = %q, want the backend detail", clientErr.Message)
	}
}

func TestStreamChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := newTestClient(srv).StreamChat(context.Background(), ChatRequest{Message: "x"}, nil)
	if err == nil {
		t.Fatal("expected an error against a closed server")
	}
}

// =============================================================================
// JSON ENDPOINT TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ModelsResponse{Models: []Model{
			{Name: "mistral", Size: 4_000_000_000},
			{Name: "llama3"},
		}})
	}))
	defer srv.Close()

	models, err := newTestClient(srv).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0].Name != "mistral" {
		t.Errorf("models = %+v", models)
	}
}

func TestDoJSON_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(srv).History(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDoJSON_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv).GetHealth(context.Background())
	if !errors.Is(err, ErrBackendDown) {
		t.Errorf("got %v, want ErrBackendDown", err)
	}
}

func TestToggleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/mcp/servers/infra/toggle" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]bool
		json.NewDecoder(r.Body).Decode(&body)
		if !body["enabled"] {
			t.Error("expected enabled=true in body")
		}
		json.NewEncoder(w).Encode(ServerToggle{Server: "infra", Enabled: true, Status: "connected"})
	}))
	defer srv.Close()

	result, err := newTestClient(srv).ToggleServer(context.Background(), "infra", true)
	if err != nil {
		t.Fatalf("ToggleServer failed: %v", err)
	}
	if result.Server != "infra" || !result.Enabled {
		t.Errorf("result = %+v", result)
	}
}

func TestDeleteConversation_EscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
	}))
	defer srv.Close()

	if err := newTestClient(srv).DeleteConversation(context.Background(), "a/b"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if gotPath != "/chat/a%2Fb" {
		t.Errorf("path = %q, want escaped id", gotPath)
	}
}

// =============================================================================
// PULL TESTS
// =============================================================================

func TestPullModel_ReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/mistral/pull" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"status\":\"downloading\",\"total\":100,\"completed\":50}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: {\"status\":\"success\",\"total\":100,\"completed\":100}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	var progress []PullProgress
	err := newTestClient(srv).PullModel(context.Background(), "mistral", func(p PullProgress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("PullModel failed: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("got %d progress records, want 2", len(progress))
	}
	if progress[0].Completed != 50 || progress[1].Status != "success" {
		t.Errorf("progress = %+v", progress)
	}
}

// =============================================================================
// ERROR MATCHING TESTS
// =============================================================================

func TestClientError_Is(t *testing.T) {
	wrapped := &ClientError{Type: ErrTypeConnection, Message: "stream request failed", Cause: errors.New("refused")}
	if !errors.Is(wrapped, ErrBackendDown) {
		t.Error("connection errors should match ErrBackendDown")
	}
	if errors.Is(wrapped, ErrTimeout) {
		t.Error("connection errors should not match ErrTimeout")
	}
}

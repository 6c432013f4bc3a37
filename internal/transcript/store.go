// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript owns the durable, ordered record of conversations.
//
// The store is the single mutation path for chat history. All operations are
// synchronous and total: a mutation against an id that no longer exists is a
// silent no-op, never an error, because the owning session may race with a
// user deleting a conversation mid-stream.
package transcript

import (
	"sync"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
)

// =============================================================================
// PATCH TYPES
// =============================================================================

// MessagePatch carries the fields UpdateMessage may change. Nil fields are
// left untouched.
type MessagePatch struct {
	Status  *chat.MessageStatus
	Content *string
	Tokens  *chat.TokenUsage
}

// ToolCallPatch carries the fields UpdateToolCall may change.
type ToolCallPatch struct {
	Status        *chat.ToolCallStatus
	ResultPreview *string
	Success       *bool
	DurationMs    *int64
}

// =============================================================================
// STORE
// =============================================================================

// Store holds the conversation list and the current selection.
type Store struct {
	mu            sync.Mutex
	conversations []*chat.Conversation
	currentID     string
}

// NewStore creates an empty transcript store.
func NewStore() *Store {
	return &Store{conversations: make([]*chat.Conversation, 0)}
}

// CreateConversation creates a new conversation, prepends it to the list and
// makes it current.
func (s *Store) CreateConversation() *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := chat.NewConversation()
	s.conversations = append([]*chat.Conversation{conv}, s.conversations...)
	s.currentID = conv.ID
	return conv
}

// SetCurrent selects a conversation by id. An empty id clears the selection;
// an unknown id is ignored.
func (s *Store) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.currentID = ""
		return
	}
	if s.find(id) != nil {
		s.currentID = id
	}
}

// Current returns the selected conversation, or nil.
func (s *Store) Current() *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(s.currentID)
}

// CurrentID returns the selected conversation id, or "".
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Get returns a conversation by id, or nil.
func (s *Store) Get(id string) *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// List returns the conversations, most recently created first.
func (s *Store) List() []*chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*chat.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Restore replaces the store's contents with previously archived
// conversations, leaving none selected. Used once at startup.
func (s *Store) Restore(convs []*chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = append([]*chat.Conversation{}, convs...)
	s.currentID = ""
}

// SetModel records the model a conversation was answered with.
func (s *Store) SetModel(convID, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv := s.find(convID); conv != nil {
		conv.Model = model
	}
}

// =============================================================================
// MESSAGE MUTATIONS
// =============================================================================

// AddMessage appends a message to a conversation.
func (s *Store) AddMessage(convID string, msg *chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv := s.find(convID); conv != nil {
		conv.AddMessage(msg)
	}
}

// UpdateMessage patches a message's status, content or token fields.
func (s *Store) UpdateMessage(convID, msgID string, patch MessagePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessage(convID, msgID)
	if msg == nil {
		return
	}
	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	if patch.Tokens != nil {
		usage := *patch.Tokens
		msg.Tokens = &usage
	}
	if patch.Status != nil {
		msg.Status = *patch.Status
	}
}

// AppendContent appends a streaming delta to a message's content.
// This is an append, never a replace: rapid successive calls preserve the
// arrival order of deltas.
func (s *Store) AppendContent(convID, msgID, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.findMessage(convID, msgID); msg != nil {
		msg.AppendContent(delta)
	}
}

// =============================================================================
// TOOL CALL MUTATIONS
// =============================================================================

// AddToolCall appends a tool call to a message. An id already present on
// the message is not appended again.
func (s *Store) AddToolCall(convID, msgID string, tc *chat.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.findMessage(convID, msgID); msg != nil && !msg.HasToolCall(tc.ID) {
		msg.ToolCalls = append(msg.ToolCalls, tc)
	}
}

// UpdateToolCall patches a tool call within a message.
func (s *Store) UpdateToolCall(convID, msgID, toolID string, patch ToolCallPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessage(convID, msgID)
	if msg == nil {
		return
	}
	tc := msg.FindToolCall(toolID)
	if tc == nil {
		return
	}
	if patch.Status != nil {
		tc.Status = *patch.Status
	}
	if patch.ResultPreview != nil {
		tc.ResultPreview = *patch.ResultPreview
	}
	if patch.Success != nil {
		tc.Success = *patch.Success
	}
	if patch.DurationMs != nil {
		tc.DurationMs = *patch.DurationMs
	}
}

// =============================================================================
// DELETION
// =============================================================================

// DeleteConversation removes a conversation. The current selection is
// cleared when it pointed at the deleted conversation.
func (s *Store) DeleteConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, conv := range s.conversations {
		if conv.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			if s.currentID == id {
				s.currentID = ""
			}
			return
		}
	}
}

// ClearAll removes every conversation and clears the selection.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make([]*chat.Conversation, 0)
	s.currentID = ""
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) find(id string) *chat.Conversation {
	if id == "" {
		return nil
	}
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (s *Store) findMessage(convID, msgID string) *chat.Message {
	conv := s.find(convID)
	if conv == nil {
		return nil
	}
	return conv.FindMessage(msgID)
}

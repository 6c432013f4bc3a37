// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	arch, err := OpenArchive(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { arch.Close() })
	return arch
}

// =============================================================================
// ROUNDTRIP TESTS
// =============================================================================

func TestArchive_SaveAndLoadRoundtrip(t *testing.T) {
	arch := openTestArchive(t)

	conv := chat.NewConversation()
	conv.Model = "mistral"
	conv.AddMessage(chat.NewUserMessage("Quels serveurs sont connectés ?"))

	reply := chat.NewStreamingAssistantMessage()
	reply.AppendContent("Deux serveurs sont connectés.")
	reply.Status = chat.StatusCompleted
	reply.Tokens = &chat.TokenUsage{Prompt: 8, Completion: 5, Total: 13}
	reply.ToolCalls = append(reply.ToolCalls, &chat.ToolCall{
		ID:            "t1",
		Name:          "list_servers",
		Status:        chat.ToolSuccess,
		Server:        "infra",
		ResultPreview: "2 serveurs",
		Success:       true,
		DurationMs:    120,
	})
	conv.AddMessage(reply)

	require.NoError(t, arch.Save(conv))

	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, conv.Title, got.Title)
	assert.Equal(t, "mistral", got.Model)
	require.Equal(t, 2, got.MessageCount())

	gotReply := got.Messages[1]
	assert.Equal(t, "Deux serveurs sont connectés.", gotReply.Content)
	assert.Equal(t, chat.StatusCompleted, gotReply.Status)
	require.NotNil(t, gotReply.Tokens)
	assert.Equal(t, 13, gotReply.Tokens.Total)

	require.Len(t, gotReply.ToolCalls, 1)
	tc := gotReply.ToolCalls[0]
	assert.Equal(t, "t1", tc.ID)
	assert.Equal(t, "list_servers", tc.Name)
	assert.True(t, tc.Success)
	assert.Equal(t, int64(120), tc.DurationMs)

	// Messages without tokens come back with Tokens nil, not zeroed.
	assert.Nil(t, got.Messages[0].Tokens)
}

func TestArchive_SaveReplacesPreviousCopy(t *testing.T) {
	arch := openTestArchive(t)

	conv := chat.NewConversation()
	conv.AddMessage(chat.NewUserMessage("première version"))
	require.NoError(t, arch.Save(conv))

	conv.AddMessage(chat.NewUserMessage("suite"))
	require.NoError(t, arch.Save(conv))

	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].MessageCount())
}

func TestArchive_LoadAllOrdersByRecency(t *testing.T) {
	arch := openTestArchive(t)

	older := chat.NewConversation()
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := chat.NewConversation()

	require.NoError(t, arch.Save(older))
	require.NoError(t, arch.Save(newer))

	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, newer.ID, loaded[0].ID, "most recently updated conversation should come first")
}

// =============================================================================
// DELETION AND PRUNING TESTS
// =============================================================================

func TestArchive_Delete(t *testing.T) {
	arch := openTestArchive(t)

	conv := chat.NewConversation()
	conv.AddMessage(chat.NewUserMessage("à supprimer"))
	require.NoError(t, arch.Save(conv))

	require.NoError(t, arch.Delete(conv.ID))
	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	assert.NoError(t, arch.Delete("unknown"), "deleting an unknown id should not fail")
}

func TestArchive_Prune(t *testing.T) {
	arch := openTestArchive(t)

	for i := 0; i < 5; i++ {
		conv := chat.NewConversation()
		conv.UpdatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, arch.Save(conv))
	}

	require.NoError(t, arch.Prune(2))
	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestArchive_PruneUnlimited(t *testing.T) {
	arch := openTestArchive(t)

	require.NoError(t, arch.Save(chat.NewConversation()))
	require.NoError(t, arch.Prune(0))

	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "Prune(0) should keep everything")
}

func TestArchive_SaveAll(t *testing.T) {
	arch := openTestArchive(t)

	store := NewStore()
	store.CreateConversation()
	store.CreateConversation()

	require.NoError(t, arch.SaveAll(store))
	loaded, err := arch.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

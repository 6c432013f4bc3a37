// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
)

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive persists conversations to a local SQLite database so they survive
// restarts. The in-memory Store stays authoritative while the client runs;
// the archive is written on conversation boundaries and at shutdown.
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	status          TEXT NOT NULL,
	timestamp       INTEGER NOT NULL,
	tool_calls      TEXT NOT NULL DEFAULT '[]',
	tokens          TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, position);
`

// OpenArchive opens (creating if needed) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// =============================================================================
// WRITING
// =============================================================================

// Save writes one conversation and all of its messages, replacing any
// previously archived copy. The replacement happens in a single transaction.
func (a *Archive) Save(conv *chat.Conversation) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversations WHERE id = ?", conv.ID); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, conv.ID, conv.Title, conv.Model, conv.CreatedAt.Unix(), conv.UpdatedAt.Unix())
	if err != nil {
		return err
	}

	for i, msg := range conv.Messages {
		toolCalls, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to encode tool calls: %w", err)
		}

		var tokens any
		if msg.Tokens != nil {
			data, err := json.Marshal(msg.Tokens)
			if err != nil {
				return fmt.Errorf("failed to encode tokens: %w", err)
			}
			tokens = string(data)
		}

		_, err = tx.Exec(`
			INSERT INTO messages
				(id, conversation_id, position, role, content, status, timestamp, tool_calls, tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, msg.ID, conv.ID, i, string(msg.Role), msg.Content, string(msg.Status),
			msg.Timestamp.Unix(), string(toolCalls), tokens)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveAll archives every conversation in the store.
func (a *Archive) SaveAll(store *Store) error {
	for _, conv := range store.List() {
		if err := a.Save(conv); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one conversation from the archive. Unknown ids are a no-op.
func (a *Archive) Delete(id string) error {
	_, err := a.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	return err
}

// Clear removes everything from the archive.
func (a *Archive) Clear() error {
	_, err := a.db.Exec("DELETE FROM conversations")
	return err
}

// Prune keeps only the max most recently updated conversations.
// max <= 0 means unlimited and prunes nothing.
func (a *Archive) Prune(max int) error {
	if max <= 0 {
		return nil
	}
	_, err := a.db.Exec(`
		DELETE FROM conversations WHERE id NOT IN (
			SELECT id FROM conversations ORDER BY updated_at DESC LIMIT ?
		)
	`, max)
	return err
}

// =============================================================================
// READING
// =============================================================================

// LoadAll returns every archived conversation, most recently updated first,
// with messages in their stored order.
func (a *Archive) LoadAll() ([]*chat.Conversation, error) {
	rows, err := a.db.Query(`
		SELECT id, title, model, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []*chat.Conversation
	for rows.Next() {
		var (
			conv             chat.Conversation
			created, updated int64
		)
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.Model, &created, &updated); err != nil {
			return nil, err
		}
		conv.CreatedAt = time.Unix(created, 0)
		conv.UpdatedAt = time.Unix(updated, 0)
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, conv := range convs {
		msgs, err := a.loadMessages(conv.ID)
		if err != nil {
			return nil, err
		}
		conv.Messages = msgs
	}
	return convs, nil
}

// loadMessages returns the messages of one conversation in stored order.
func (a *Archive) loadMessages(convID string) ([]*chat.Message, error) {
	rows, err := a.db.Query(`
		SELECT id, role, content, status, timestamp, tool_calls, tokens
		FROM messages WHERE conversation_id = ? ORDER BY position
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*chat.Message
	for rows.Next() {
		var (
			msg       chat.Message
			role      string
			status    string
			timestamp int64
			toolCalls string
			tokens    sql.NullString
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &status, &timestamp, &toolCalls, &tokens); err != nil {
			return nil, err
		}
		msg.Role = chat.Role(role)
		msg.Status = chat.MessageStatus(status)
		msg.Timestamp = time.Unix(timestamp, 0)

		if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
			return nil, fmt.Errorf("failed to decode tool calls: %w", err)
		}
		if msg.ToolCalls == nil {
			msg.ToolCalls = []*chat.ToolCall{}
		}
		if tokens.Valid {
			var usage chat.TokenUsage
			if err := json.Unmarshal([]byte(tokens.String), &usage); err != nil {
				return nil, fmt.Errorf("failed to decode tokens: %w", err)
			}
			msg.Tokens = &usage
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive persists session transcripts to a local SQLite
// database so past conversations survive backend resets and can be
// searched offline.
//
// The schema mirrors the backend's conversation store: one row per
// chat, one per message, one per document. Messages are mirrored into
// an FTS5 index for full-text search.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/finquill/finchat-tui/internal/model"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS chats (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
    chat_id    TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    timestamp  TEXT NOT NULL DEFAULT '',
    time_taken REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (chat_id, seq)
);

CREATE TABLE IF NOT EXISTS documents (
    chat_id     TEXT NOT NULL,
    name        TEXT NOT NULL,
    size        INTEGER NOT NULL DEFAULT 0,
    uploaded_at TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (chat_id, name)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;
`

const timeLayout = time.RFC3339Nano

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a local transcript store.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at the given path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// WRITES
// =============================================================================

// SaveSession writes a session's full state, replacing whatever the
// archive held for it. One transaction per session keeps the chat row,
// transcript, and document list consistent.
func (a *Archive) SaveSession(sess *model.Session) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive write: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		sess.ID, sess.Title, formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("write chat row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	for i, msg := range sess.Messages {
		_, err := tx.Exec(
			`INSERT INTO messages (chat_id, seq, role, content, timestamp, time_taken) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, i, msg.Role.String(), msg.Content, formatTime(msg.Timestamp), msg.TimeTaken,
		)
		if err != nil {
			return fmt.Errorf("write message %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM documents WHERE chat_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	for _, doc := range sess.Documents {
		_, err := tx.Exec(
			`INSERT INTO documents (chat_id, name, size, uploaded_at) VALUES (?, ?, ?, ?)`,
			sess.ID, doc.Name, doc.Size, formatTime(doc.UploadedAt),
		)
		if err != nil {
			return fmt.Errorf("write document %q: %w", doc.Name, err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session and everything attached to it.
func (a *Archive) DeleteSession(id string) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive delete: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM messages WHERE chat_id = ?`,
		`DELETE FROM documents WHERE chat_id = ?`,
		`DELETE FROM chats WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

// LoadSessions reads every archived session, transcripts and documents
// included, ordered by updated_at descending.
func (a *Archive) LoadSessions() ([]*model.Session, error) {
	rows, err := a.db.Query(`SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("read chats: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var id, title, createdAt, updatedAt string
		if err := rows.Scan(&id, &title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		sess := &model.Session{
			ID:        id,
			Title:     title,
			CreatedAt: parseTime(createdAt),
			UpdatedAt: parseTime(updatedAt),
		}
		sess.Normalize()
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chats: %w", err)
	}

	for _, sess := range sessions {
		if err := a.loadTranscript(sess); err != nil {
			return nil, err
		}
		if err := a.loadDocuments(sess); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (a *Archive) loadTranscript(sess *model.Session) error {
	rows, err := a.db.Query(
		`SELECT role, content, timestamp, time_taken FROM messages WHERE chat_id = ? ORDER BY seq`, sess.ID)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content, ts string
		var taken float64
		if err := rows.Scan(&role, &content, &ts, &taken); err != nil {
			return fmt.Errorf("scan message row: %w", err)
		}
		sess.Messages = append(sess.Messages, model.Message{
			Role:      model.ParseRole(role),
			Content:   content,
			Timestamp: parseTime(ts),
			TimeTaken: taken,
		})
	}
	return rows.Err()
}

func (a *Archive) loadDocuments(sess *model.Session) error {
	rows, err := a.db.Query(
		`SELECT name, size, uploaded_at FROM documents WHERE chat_id = ? ORDER BY uploaded_at`, sess.ID)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, uploadedAt string
		var size int64
		if err := rows.Scan(&name, &size, &uploadedAt); err != nil {
			return fmt.Errorf("scan document row: %w", err)
		}
		sess.Documents = append(sess.Documents, model.Document{
			Name:       name,
			Size:       size,
			UploadedAt: parseTime(uploadedAt),
		})
	}
	return rows.Err()
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchHit is one full-text search match.
type SearchHit struct {
	SessionID string
	Title     string
	Role      model.Role
	Snippet   string
}

// Search runs a full-text query over archived message content and
// returns up to limit hits, best match first.
func (a *Archive) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.Query(`
		SELECT m.chat_id, c.title, m.role,
		       snippet(messages_fts, 0, '', '', '…', 12)
		FROM messages_fts
		JOIN messages m ON m.rowid = messages_fts.rowid
		JOIN chats c ON c.id = m.chat_id
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var role string
		if err := rows.Scan(&hit.SessionID, &hit.Title, &role, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hit.Role = model.ParseRole(role)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

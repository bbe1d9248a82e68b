// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/finquill/finchat-tui/internal/util"
)

// DefaultTitle is the placeholder title for a session that has not been
// named yet. Matches the backend's default.
const DefaultTitle = "New Chat"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one chat conversation with its transcript and the
// documents attached to it.
type Session struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transcript, in append order
	Messages []Message `json:"messages"`

	// Documents uploaded for this session
	Documents []Document `json:"document,omitempty"`

	// Unsynced marks a session created locally that the server has not
	// confirmed yet. The backend materializes a chat row on the first
	// message, so fetching history for an unsynced session would race an
	// unwritten record.
	Unsynced bool `json:"-"`
}

// NewSession creates a new, empty, unsynced session with a generated ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
		Unsynced:  true,
	}
}

// Normalize fills defaults so a session decoded from the wire satisfies
// the store invariants: a non-nil message slice and a non-empty title.
func (s *Session) Normalize() {
	if s.Title == "" {
		s.Title = DefaultTitle
	}
	if s.Messages == nil {
		s.Messages = make([]Message, 0)
	}
}

// LastActivity returns the timestamp used for recency ordering:
// UpdatedAt, falling back to CreatedAt when UpdatedAt is unset.
func (s *Session) LastActivity() time.Time {
	if !s.UpdatedAt.IsZero() {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if the transcript has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Preview returns a short single-line preview of the first user message,
// or "" for an empty session.
func (s *Session) Preview(maxLen int) string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(maxLen)
		}
	}
	return ""
}

// DisplayTitle returns the title, substituting the first user message
// preview when only the placeholder is set and the transcript has content.
func (s *Session) DisplayTitle() string {
	if s.Title != "" && s.Title != DefaultTitle {
		return s.Title
	}
	if p := s.Preview(40); p != "" {
		return p
	}
	return DefaultTitle
}

// Clone returns a deep copy of the session. Store reads hand out clones
// so callers can never mutate the store's view of a transcript.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	clone.Documents = make([]Document, len(s.Documents))
	copy(clone.Documents, s.Documents)
	return &clone
}

// =============================================================================
// SESSION METADATA
// =============================================================================

// SessionMeta holds lightweight metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// Meta returns metadata about the session.
func (s *Session) Meta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Title:        s.DisplayTitle(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
		Preview:      util.TruncateRunes(s.Preview(80), 80),
	}
}

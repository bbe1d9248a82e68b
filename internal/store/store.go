// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory session state shared by the
// controller and the UI.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/finquill/finchat-tui/internal/model"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore is the canonical owner of all session state. Every read
// hands out deep copies, so callers can never mutate a session behind
// the store's back; all writes go through store methods.
type SessionStore struct {
	mu sync.Mutex

	sessions map[string]*model.Session
	order    []string // insertion order, used to break recency ties
	selected string   // always "" or a key of sessions
}

// New creates an empty session store.
func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.Session),
	}
}

// =============================================================================
// WRITES
// =============================================================================

// Upsert inserts a session or replaces an existing one with the same ID.
// Replacement keeps the session's original insertion position. The
// stored copy is normalized (placeholder title, non-nil messages) so
// the store never holds a session violating those invariants, wherever
// it came from. A session without an ID is ignored.
func (s *SessionStore) Upsert(sess *model.Session) {
	if sess.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		s.order = append(s.order, sess.ID)
	}
	clone := sess.Clone()
	clone.Normalize()
	s.sessions[sess.ID] = clone
}

// AppendMessages appends messages to a session's history and moves its
// updatedAt to the last appended message's timestamp, so recency tracks
// the transcript rather than the local clock. Appending nothing, or
// appending to an unknown session, is a silent no-op.
func (s *SessionStore) AppendMessages(id string, msgs ...model.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Messages = append(sess.Messages, msgs...)
	if ts := msgs[len(msgs)-1].Timestamp; !ts.IsZero() {
		sess.UpdatedAt = ts
	} else {
		sess.UpdatedAt = time.Now()
	}
}

// SetMessages replaces a session's full history, typically after a
// server history fetch. Unknown IDs are a no-op. A successful history
// fetch also marks the session synced.
func (s *SessionStore) SetMessages(id string, msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Messages = append([]model.Message(nil), msgs...)
	sess.Unsynced = false
}

// SetDocuments replaces a session's document list. Unknown IDs are a
// no-op.
func (s *SessionStore) SetDocuments(id string, docs []model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Documents = append([]model.Document(nil), docs...)
}

// AppendDocument records a newly uploaded document on a session.
func (s *SessionStore) AppendDocument(id string, doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Documents = append(sess.Documents, doc)
}

// SetTitle renames a session. Unknown IDs are a no-op.
func (s *SessionStore) SetTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Title = title
	sess.UpdatedAt = time.Now()
}

// MarkSynced clears a session's unsynced flag once the server knows
// about it.
func (s *SessionStore) MarkSynced(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Unsynced = false
	}
}

// =============================================================================
// SELECTION
// =============================================================================

// Select makes the given session the active one. Selecting an unknown
// ID fails and leaves the current selection untouched.
func (s *SessionStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return model.ErrSessionNotFound
	}
	s.selected = id
	return nil
}

// SelectedID returns the active session's ID, or "" when none is
// selected.
func (s *SessionStore) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns a copy of the active session.
func (s *SessionStore) Selected() (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return nil, false
	}
	sess, ok := s.sessions[s.selected]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// =============================================================================
// READS
// =============================================================================

// Get returns a copy of the session with the given ID.
func (s *SessionStore) Get(id string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Len returns the number of sessions in the store.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListByRecency returns copies of all sessions ordered by last activity,
// newest first. Sessions that have never been updated sort by creation
// time, and ties keep insertion order. The ordering is computed from
// current state on every call, nothing is cached.
func (s *SessionStore) ListByRecency() []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Session, 0, len(s.order))
	for _, id := range s.order {
		if sess, ok := s.sessions[id]; ok {
			out = append(out, sess.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})
	return out
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"
	"time"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		wire string
		want Role
	}{
		{"user", RoleUser},
		{"assistant", RoleAssistant},
		{"model", RoleAssistant},
		{"tool", RoleAssistant},
		{"", RoleUser},
		{"bogus", RoleUser},
	}

	for _, tc := range tests {
		if got := ParseRole(tc.wire); got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.wire, got, tc.want)
		}
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	s := NewSession()

	if s.ID == "" {
		t.Error("NewSession should generate an ID")
	}
	if s.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", s.Title, DefaultTitle)
	}
	if !s.Unsynced {
		t.Error("new sessions must start unsynced")
	}
	if s.Messages == nil || len(s.Messages) != 0 {
		t.Error("new sessions must start with an empty transcript")
	}

	// IDs must be unique across the process lifetime
	if NewSession().ID == s.ID {
		t.Error("two sessions got the same ID")
	}
}

func TestSessionNormalize(t *testing.T) {
	s := &Session{ID: "abc"}
	s.Normalize()

	if s.Title != DefaultTitle {
		t.Errorf("Normalize should default title, got %q", s.Title)
	}
	if s.Messages == nil {
		t.Error("Normalize should allocate the message slice")
	}

	// Existing values are preserved
	s2 := &Session{ID: "x", Title: "Quarterly report"}
	s2.Normalize()
	if s2.Title != "Quarterly report" {
		t.Errorf("Normalize overwrote title: %q", s2.Title)
	}
}

func TestSessionLastActivity(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	s := &Session{CreatedAt: created}
	if got := s.LastActivity(); !got.Equal(created) {
		t.Errorf("LastActivity without UpdatedAt = %v, want CreatedAt", got)
	}

	s.UpdatedAt = updated
	if got := s.LastActivity(); !got.Equal(updated) {
		t.Errorf("LastActivity = %v, want UpdatedAt", got)
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession()
	s.Messages = append(s.Messages, NewUserMessage("hello"))

	clone := s.Clone()
	clone.Messages[0].Content = "mutated"
	clone.Messages = append(clone.Messages, NewUserMessage("extra"))

	if s.Messages[0].Content != "hello" {
		t.Error("mutating a clone leaked into the original transcript")
	}
	if len(s.Messages) != 1 {
		t.Error("appending to a clone grew the original transcript")
	}
}

func TestSessionDisplayTitle(t *testing.T) {
	s := NewSession()
	if got := s.DisplayTitle(); got != DefaultTitle {
		t.Errorf("empty session DisplayTitle = %q", got)
	}

	s.Messages = append(s.Messages, NewUserMessage("what moved the market today?"))
	if got := s.DisplayTitle(); got != "what moved the market today?" {
		t.Errorf("DisplayTitle = %q, want first user message", got)
	}

	s.Title = "Market recap"
	if got := s.DisplayTitle(); got != "Market recap" {
		t.Errorf("DisplayTitle = %q, want explicit title", got)
	}
}

// =============================================================================
// UPLOAD VALIDATION TESTS
// =============================================================================

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		size      int64
		wantErr   error
	}{
		{name: "valid pdf", mediaType: PDFMediaType, size: 4096, wantErr: nil},
		{name: "at limit exactly", mediaType: PDFMediaType, size: 10485760, wantErr: nil},
		{name: "one byte over", mediaType: PDFMediaType, size: 10485761, wantErr: ErrDocumentTooLarge},
		{name: "png rejected", mediaType: "image/png", size: 100, wantErr: ErrBadDocumentType},
		{name: "empty type rejected", mediaType: "", size: 100, wantErr: ErrBadDocumentType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.mediaType, tc.size)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateUpload(%q, %d) = %v, want %v", tc.mediaType, tc.size, err, tc.wantErr)
			}
		})
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocumentDisplaySize(t *testing.T) {
	d := Document{Name: "10k.pdf", Size: 2560}
	if got := d.DisplaySize(); got != "2.5 KB" {
		t.Errorf("DisplaySize = %q, want 2.5 KB", got)
	}
}

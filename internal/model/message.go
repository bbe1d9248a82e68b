// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"

	"github.com/finquill/finchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ParseRole maps a wire role string to a Role. The backend stores
// assistant turns under the role "model"; both spellings decode to
// RoleAssistant. Anything unrecognized decodes to RoleUser so a
// transcript never drops a message over an unknown role.
func ParseRole(s string) Role {
	switch s {
	case "assistant", "model", "tool":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session transcript.
// Messages are immutable once appended; ordering is append order.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// TimeTaken is the backend-reported generation time in seconds.
	// Zero for user messages and for history entries without metadata.
	TimeTaken float64 `json:"time_taken,omitempty"`
}

// NewUserMessage creates a new user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates a new assistant message stamped with the
// current time.
func NewAssistantMessage(content string, timeTaken float64) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		TimeTaken: timeTaken,
	}
}

// Preview returns a single-line truncated preview of the message content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.FirstLine(m.Content), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// FormatStats returns a short statistics string for assistant messages,
// or "" when no timing metadata is available.
func (m Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TimeTaken <= 0 {
		return ""
	}
	return util.FloatToStringPrec(m.TimeTaken, 1) + "s"
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A Session is one conversation: identity, title, timestamps, an
// append-ordered transcript of Messages, and the Documents uploaded for
// it. Sessions created locally start Unsynced until the backend confirms
// them through the first successful send.
//
// The JSON tags mirror the backend wire format (snake_case fields,
// ISO-8601 timestamps). Role decoding is lenient: the backend's "model"
// role maps to RoleAssistant.
package model

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import "errors"

// Validation errors surfaced before any network traffic happens.
var (
	// ErrBadDocumentType indicates an upload with a non-PDF media type.
	ErrBadDocumentType = errors.New("only PDF documents are accepted")

	// ErrDocumentTooLarge indicates an upload over the 10 MiB limit.
	ErrDocumentTooLarge = errors.New("document exceeds the 10 MB size limit")

	// ErrEmptyMessage indicates a send with empty or whitespace-only text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoActiveSession indicates an operation that needs a selected
	// session when none is selected.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSendInFlight indicates a send was rejected because another send
	// is still awaiting its response.
	ErrSendInFlight = errors.New("another message is already in flight")

	// ErrSessionNotFound is returned when a session id is not in the store.
	ErrSessionNotFound = errors.New("session not found")
)

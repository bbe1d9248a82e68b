// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown converts free-form assistant text into structured
// blocks for rendering.
//
// The parser is deliberately line-oriented and minimal: a line that,
// after trimming, starts and ends with a pipe is a table-candidate, and
// a run of at least three candidates (header, delimiter, data) forms a
// table. The delimiter row is accepted without validation; runs shorter
// than three lines pass through as plain text. This mirrors the behavior
// the backend's web client established, so transcripts render the same
// in both frontends.
//
// FormatMessage is the single entry point: it parses, lays out tables
// with display-width-aware alignment, and rewrites **strong** and
// *emphasis* token pairs everywhere, including inside table cells.
package markdown

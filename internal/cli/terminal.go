// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"golang.org/x/term"
)

const (
	// DefaultTerminalWidth is used when the real width cannot be detected.
	DefaultTerminalWidth = 80
	// MinTerminalWidth is the narrowest width rendering is attempted at.
	MinTerminalWidth = 40
)

// IsTTY reports whether stdin is attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is attached to a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width, clamped to
// MinTerminalWidth, or DefaultTerminalWidth when detection fails.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	if w < MinTerminalWidth {
		return MinTerminalWidth
	}
	return w
}

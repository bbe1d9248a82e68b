// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements argument parsing, terminal handling, and the
// plain-terminal REPL for finchat.
package cli

import (
	"fmt"
	"strings"
)

// Args holds the parsed command line.
type Args struct {
	// ServerURL overrides server.base_url from the config.
	ServerURL string
	// Plain forces the line-based REPL instead of the full-screen TUI.
	Plain bool
	// Theme overrides ui.theme ("dark", "light", "auto").
	Theme string
	// WatchDir enables the drop-folder watcher on the given directory.
	WatchDir string
	// ShowVersion prints the version and exits.
	ShowVersion bool
	// ShowHelp prints usage and exits.
	ShowHelp bool
}

// ParseArgs parses raw command-line arguments. Both "--flag value" and
// "--flag=value" forms are accepted.
func ParseArgs(raw []string) (Args, error) {
	var args Args

	i := 0
	next := func(flag string) (string, error) {
		if i+1 >= len(raw) {
			return "", fmt.Errorf("flag %s needs a value", flag)
		}
		i++
		return raw[i], nil
	}

	for ; i < len(raw); i++ {
		arg := raw[i]
		name, value := arg, ""
		hasValue := false
		if j := strings.IndexByte(arg, '='); j >= 0 {
			name, value = arg[:j], arg[j+1:]
			hasValue = true
		}

		switch name {
		case "--server", "-s":
			if !hasValue {
				v, err := next(name)
				if err != nil {
					return args, err
				}
				value = v
			}
			args.ServerURL = value

		case "--theme":
			if !hasValue {
				v, err := next(name)
				if err != nil {
					return args, err
				}
				value = v
			}
			args.Theme = value

		case "--watch":
			if !hasValue {
				v, err := next(name)
				if err != nil {
					return args, err
				}
				value = v
			}
			args.WatchDir = value

		case "--plain", "-p":
			args.Plain = true

		case "--version", "-V":
			args.ShowVersion = true

		case "--help", "-h":
			args.ShowHelp = true

		default:
			return args, fmt.Errorf("unknown flag %s", arg)
		}
	}
	return args, nil
}

// Usage returns the help text.
func Usage() string {
	return `finchat - terminal client for the finchat RAG backend

Usage:
  finchat [flags]

Flags:
  -s, --server URL   Backend base URL (default http://localhost:8000/api)
  -p, --plain        Line-based REPL instead of the full-screen TUI
      --theme NAME   Color theme: dark, light, auto
      --watch DIR    Auto-upload PDFs dropped into DIR
  -V, --version      Print version and exit
  -h, --help         Show this help

Environment:
  FINCHAT_CONFIG       Config file path (default ~/.finchat/config.toml)
  FINCHAT_SERVER_URL   Backend base URL
  FINCHAT_THEME        Color theme
  FINCHAT_PLAIN        Set to 1 to force the plain REPL
`
}

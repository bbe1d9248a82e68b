// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewThemeModes(t *testing.T) {
	for _, mode := range []string{"dark", "light", "auto"} {
		t.Run(mode, func(t *testing.T) {
			theme := NewTheme(mode)
			if theme == nil {
				t.Fatal("NewTheme returned nil")
			}
		})
	}
}

// The markdown renderer takes func(string) string decorators; each
// theme hook must carry the decorated text through intact.
func TestMarkdownStyleDecoratorsKeepContent(t *testing.T) {
	theme := NewTheme("dark")
	md := theme.MarkdownStyle()

	decorators := map[string]func(string) string{
		"Strong":     md.Strong,
		"Emphasis":   md.Emphasis,
		"HeaderCell": md.HeaderCell,
		"Cell":       md.Cell,
	}
	for name, fn := range decorators {
		if fn == nil {
			t.Fatalf("%s decorator is nil", name)
		}
		if out := fn("NVDA up 4.2%"); !strings.Contains(out, "NVDA up 4.2%") {
			t.Errorf("%s dropped content: %q", name, out)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"

	"github.com/finquill/finchat-tui/internal/util"
)

// =============================================================================
// INLINE EMPHASIS
// =============================================================================

// Emphasis token pairs. ** pairs must be rewritten before single * pairs
// so bold markers are not consumed as two italics.
var (
	strongRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emRe     = regexp.MustCompile(`\*(.+?)\*`)
)

// StyleFunc decorates a piece of text for display.
type StyleFunc func(string) string

// Style controls how rendered output is decorated. Zero-value fields
// fall back to identity, so the zero Style renders plain text.
type Style struct {
	Strong     StyleFunc // **text**
	Emphasis   StyleFunc // *text*
	HeaderCell StyleFunc // table header cells
	Cell       StyleFunc // table data cells
}

func (s Style) strong(v string) string   { return apply(s.Strong, v) }
func (s Style) emphasis(v string) string { return apply(s.Emphasis, v) }

func apply(f StyleFunc, v string) string {
	if f == nil {
		return v
	}
	return f(v)
}

// renderInline rewrites **strong** and *emphasis* token pairs using the
// style's decorators. Unpaired markers pass through untouched.
func renderInline(s string, style Style) string {
	s = strongRe.ReplaceAllStringFunc(s, func(m string) string {
		return style.strong(m[2 : len(m)-2])
	})
	s = emRe.ReplaceAllStringFunc(s, func(m string) string {
		return style.emphasis(m[1 : len(m)-1])
	})
	return s
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// FormatMessage converts message content into display text: table blocks
// become aligned tables, everything else keeps its line breaks, and
// emphasis markers are rewritten everywhere, table cells included.
// Empty content renders to "".
func FormatMessage(content string, style Style) string {
	blocks := Parse(content)
	if len(blocks) == 0 {
		return ""
	}

	var parts []string
	for _, b := range blocks {
		switch b := b.(type) {
		case TextBlock:
			lines := make([]string, len(b.Lines))
			for i, line := range b.Lines {
				lines[i] = renderInline(line, style)
			}
			parts = append(parts, strings.Join(lines, "\n"))
		case TableBlock:
			parts = append(parts, renderTable(b, style))
		}
	}
	return strings.Join(parts, "\n")
}

// renderTable lays a table out with per-column alignment. Column widths
// are measured on the emphasis-rewritten cell text so markers do not
// skew the layout.
func renderTable(t TableBlock, style Style) string {
	cols := t.Columns()
	if cols == 0 {
		return ""
	}

	header := padded(t.Header, cols, style)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = padded(row, cols, style)
	}

	widths := make([]int, cols)
	for c := 0; c < cols; c++ {
		widths[c] = util.StringWidth(header[c])
		for _, row := range rows {
			if w := util.StringWidth(row[c]); w > widths[c] {
				widths[c] = w
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, decorate StyleFunc) {
		for c, cell := range cells {
			if c > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(apply(decorate, util.PadRight(cell, widths[c])))
		}
		sb.WriteString("\n")
	}

	writeRow(header, style.HeaderCell)
	total := 0
	for _, w := range widths {
		total += w
	}
	sb.WriteString(strings.Repeat("─", total+2*(cols-1)))
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row, style.Cell)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// padded rewrites emphasis in each cell and pads the row out to the
// table's column count with empty cells.
func padded(row []string, cols int, style Style) []string {
	out := make([]string, cols)
	for i := 0; i < cols; i++ {
		if i < len(row) {
			out[i] = renderInline(row[i], style)
		}
	}
	return out
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// =============================================================================
// BLOCK TYPES
// =============================================================================

// Block is one structural unit of a formatted message: either a run of
// plain text lines or a parsed table.
type Block interface {
	isBlock()
}

// TextBlock is a run of plain text lines, emitted in input order.
type TextBlock struct {
	Lines []string
}

func (TextBlock) isBlock() {}

// TableBlock is a parsed markdown table: one header row and zero or more
// data rows. Cells are trimmed; the delimiter row is already discarded.
type TableBlock struct {
	Header []string
	Rows   [][]string
}

func (TableBlock) isBlock() {}

// Columns returns the widest row length across header and data rows.
func (t TableBlock) Columns() int {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// =============================================================================
// LINE-ORIENTED TABLE SCANNER
// =============================================================================

// minTableLines is the smallest accumulation that forms a valid table:
// header row, delimiter row, and at least one data row. Shorter runs of
// pipe-delimited lines are emitted verbatim as text.
const minTableLines = 3

// isTableCandidate reports whether a line, after trimming whitespace,
// both starts and ends with a pipe delimiter.
func isTableCandidate(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

// Parse scans content line by line and splits it into text and table
// blocks. A run of table-candidate lines opens a table; the first
// non-candidate line closes it (and is emitted as text after the table).
// Content ending mid-table flushes the accumulator as a trailing table.
// Empty content yields no blocks.
func Parse(content string) []Block {
	if content == "" {
		return nil
	}

	var (
		blocks  []Block
		text    []string
		table   []string
		inTable bool
	)

	flushText := func() {
		if len(text) > 0 {
			blocks = append(blocks, TextBlock{Lines: text})
			text = nil
		}
	}

	flushTable := func() {
		if len(table) == 0 {
			return
		}
		if len(table) < minTableLines {
			// Not a valid table; the raw lines pass through verbatim.
			text = append(text, table...)
		} else {
			flushText()
			blocks = append(blocks, buildTable(table))
		}
		table = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if isTableCandidate(line) {
			if !inTable {
				inTable = true
			}
			table = append(table, strings.TrimSpace(line))
			continue
		}
		if inTable {
			flushTable()
			inTable = false
		}
		text = append(text, line)
	}

	if inTable {
		flushTable()
	}
	flushText()

	return blocks
}

// buildTable converts accumulated candidate lines into a TableBlock.
// Line 0 is the header, line 1 is assumed to be the delimiter row and is
// discarded without validation, lines 2.. are data rows.
func buildTable(lines []string) TableBlock {
	t := TableBlock{
		Header: splitRow(lines[0]),
	}
	for _, line := range lines[2:] {
		t.Rows = append(t.Rows, splitRow(line))
	}
	return t
}

// splitRow splits a table row on pipes, drops the first and last empty
// fields produced by the leading and trailing delimiters, and trims the
// remaining cells.
func splitRow(line string) []string {
	fields := strings.Split(line, "|")
	if len(fields) > 0 && fields[0] == "" {
		fields = fields[1:]
	}
	if len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = strings.TrimSpace(f)
	}
	return cells
}

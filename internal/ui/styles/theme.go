// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/finquill/finchat-tui/internal/markdown"
)

// Theme holds all the styled components for the application. It detects
// the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout
	App    lipgloss.Style
	Header lipgloss.Style
	Footer lipgloss.Style

	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	ErrorText      lipgloss.Style
	Timestamp      lipgloss.Style
	Stats          lipgloss.Style

	// Markdown emphasis inside messages
	Strong   lipgloss.Style
	Emphasis lipgloss.Style

	// Tables
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style

	// Session list
	SessionItem     lipgloss.Style
	SessionSelected lipgloss.Style
	SessionPreview  lipgloss.Style

	// Documents
	DocumentBadge lipgloss.Style

	// Input
	Prompt      lipgloss.Style
	Placeholder lipgloss.Style

	// Status
	Spinner  lipgloss.Style
	StatusOK lipgloss.Style
	StatusNo lipgloss.Style
}

// NewTheme builds a theme from the detected terminal capabilities.
// mode is "dark", "light", or "auto".
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Footer = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Indigo)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.AssistantText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ErrorText = lipgloss.NewStyle().Foreground(Red)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Stats = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Strong = lipgloss.NewStyle().Bold(true)
	t.Emphasis = lipgloss.NewStyle().Italic(true)

	t.TableHeader = lipgloss.NewStyle().Bold(true).Foreground(Gold)
	t.TableCell = lipgloss.NewStyle().Foreground(TextPrimary)

	t.SessionItem = lipgloss.NewStyle().Foreground(TextPrimary).Padding(0, 1)
	t.SessionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 1)
	t.SessionPreview = lipgloss.NewStyle().Foreground(TextMuted)

	t.DocumentBadge = lipgloss.NewStyle().Foreground(Gold)

	t.Prompt = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)
	t.StatusOK = lipgloss.NewStyle().Foreground(Green)
	t.StatusNo = lipgloss.NewStyle().Foreground(Red)
}

// styleFunc adapts a lipgloss style's variadic Render to the
// single-string decorator the markdown renderer takes.
func styleFunc(s lipgloss.Style) markdown.StyleFunc {
	return func(v string) string {
		return s.Render(v)
	}
}

// MarkdownStyle returns the emphasis and table decorators for message
// rendering, wired to the theme's lipgloss styles.
func (t *Theme) MarkdownStyle() markdown.Style {
	return markdown.Style{
		Strong:     styleFunc(t.Strong),
		Emphasis:   styleFunc(t.Emphasis),
		HeaderCell: styleFunc(t.TableHeader),
		Cell:       styleFunc(t.TableCell),
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/finquill/finchat-tui/internal/markdown"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/ui/styles"
	"github.com/finquill/finchat-tui/internal/util"
)

const sidebarWidth = 28

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting finchat…"
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
	input := m.renderInput()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, footer)
}

func (m Model) renderHeader() string {
	title := "finchat"
	if sess, ok := m.ctrl.Store().Selected(); ok {
		title = "finchat — " + util.TruncateWidth(sess.DisplayTitle(), m.width-20)
	}
	if len(m.documents) > 0 {
		title += m.theme.DocumentBadge.Render(fmt.Sprintf("  [%d docs]", len(m.documents)))
	}
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	height := m.viewport.Height

	for i, sess := range m.sessions {
		if i >= height {
			break
		}
		label := util.TruncateWidth(sess.DisplayTitle(), sidebarWidth-4)
		style := m.theme.SessionItem
		if m.focus == focusSessions && i == m.cursor {
			style = m.theme.SessionSelected
		} else if sess.ID == m.sessionID {
			style = m.theme.SessionSelected
		}
		sb.WriteString(style.Width(sidebarWidth - 1).Render(label))
		sb.WriteString("\n")
	}
	for i := len(m.sessions); i < height; i++ {
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().
		Width(sidebarWidth).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(styles.Border).
		Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderInput() string {
	if m.waiting {
		return m.spinner.View() + " " + m.theme.Stats.Render("thinking…")
	}
	return m.input.View()
}

func (m Model) renderFooter() string {
	left := m.status
	if left == "" {
		left = "tab: chats   ctrl+n: new   /help"
	}
	return m.theme.Footer.Width(m.width).Render(left)
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

func (m Model) transcriptWidth() int {
	w := m.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	return w
}

// renderTranscript rebuilds the viewport content from the current
// bubbles. Assistant content goes through the markdown renderer so
// tables and emphasis display properly.
func (m *Model) renderTranscript() {
	if !m.ready {
		return
	}

	mdStyle := m.theme.MarkdownStyle()
	var sb strings.Builder
	for i, b := range m.bubbles {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderBubble(b, mdStyle))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
}

func (m Model) renderBubble(b bubble, mdStyle markdown.Style) string {
	var label, body string

	switch b.kind {
	case bubbleError:
		label = m.theme.AssistantLabel.Render(b.msg.Role.DisplayName())
		body = m.theme.ErrorText.Render(b.msg.Content)

	default:
		if b.msg.Role == model.RoleUser {
			label = m.theme.UserLabel.Render(b.msg.Role.DisplayName())
			body = m.theme.UserText.Render(b.msg.Content)
		} else {
			label = m.theme.AssistantLabel.Render(b.msg.Role.DisplayName())
			body = markdown.FormatMessage(b.msg.Content, mdStyle)
		}
	}

	meta := ""
	if m.cfg.UI.ShowTimestamps && !b.msg.Timestamp.IsZero() {
		meta = "  " + m.theme.Timestamp.Render(b.msg.Timestamp.Format("15:04"))
	}
	if b.kind == bubblePending {
		meta += "  " + m.theme.Stats.Render("sending…")
	}
	if m.cfg.UI.ShowStats && b.kind == bubblePersisted {
		if stats := b.msg.FormatStats(); stats != "" {
			meta += "  " + m.theme.Stats.Render(stats)
		}
	}

	return label + meta + "\n" + body
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view for the TUI.
package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/finquill/finchat-tui/internal/config"
	"github.com/finquill/finchat-tui/internal/controller"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// focusArea tracks which pane receives navigation keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusSessions
)

// bubbleKind distinguishes persisted messages from display-only ones.
type bubbleKind int

const (
	bubblePersisted bubbleKind = iota
	bubblePending              // optimistic user echo, not yet confirmed
	bubbleError                // failed-send fallback, never persisted
)

// bubble is one rendered transcript entry.
type bubble struct {
	msg  model.Message
	kind bubbleKind
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config
	ctrl  *controller.Controller
	event <-chan controller.Event

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	// Session pane
	focus    focusArea
	sessions []*model.Session
	cursor   int

	// Active transcript
	sessionID string
	bubbles   []bubble
	documents []model.Document

	// Status
	waiting bool
	status  string
}

// NewModel creates the chat view bound to a controller and its event
// channel.
func NewModel(cfg *config.Config, ctrl *controller.Controller, events <-chan controller.Event, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Ask about markets, or /help"
	input.Prompt = "> "
	input.PromptStyle = theme.Prompt
	input.PlaceholderStyle = theme.Placeholder
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		theme:   theme,
		cfg:     cfg,
		ctrl:    ctrl,
		event:   events,
		input:   input,
		spinner: sp,
		keys:    DefaultKeyMap(),
	}
	m.refreshSessions()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForEvent(m.event),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case SendDoneMsg:
		m.waiting = false
		if msg.Err != nil {
			m.status = m.theme.StatusNo.Render(shortError(msg.Err))
		}
		return m, nil

	case SelectDoneMsg:
		if msg.Err != nil {
			m.status = m.theme.StatusNo.Render(shortError(msg.Err))
		}
		return m, nil

	case UploadDoneMsg:
		if msg.Err != nil {
			m.status = m.theme.StatusNo.Render(fmt.Sprintf("upload %s: %s", filepath.Base(msg.Name), shortError(msg.Err)))
		} else {
			m.status = m.theme.StatusOK.Render("uploaded " + filepath.Base(msg.Name))
		}
		return m, nil

	case MarketDoneMsg:
		if msg.Err != nil {
			m.status = m.theme.StatusNo.Render("market refresh failed: " + shortError(msg.Err))
		} else {
			m.status = m.theme.StatusOK.Render("market data refreshed")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := m.height - 4 // header, input, footer
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.transcriptWidth(), vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.transcriptWidth()
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 6
	m.renderTranscript()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleFocus):
		if m.focus == focusInput {
			m.focus = focusSessions
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		m.ctrl.CreateSession()
		m.refreshSessions()
		m.cursor = 0
		return m.switchToSelected()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSessions {
		return m.handleSessionKeys(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSessionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextSession):
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevSession):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Send):
		if m.cursor < len(m.sessions) {
			id := m.sessions[m.cursor].ID
			m.focus = focusInput
			m.input.Focus()
			return m, selectCmd(m.ctrl, id)
		}
	}
	return m, nil
}

// handleSubmit sends the input line: slash commands run locally,
// anything else goes to the backend.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")
	m.status = ""

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	if m.sessionID == "" {
		m.ctrl.CreateSession()
		m.refreshSessions()
	}
	m.waiting = true
	return m, sendCmd(m.ctrl, text)
}

func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/new":
		m.ctrl.CreateSession()
		m.refreshSessions()
		m.cursor = 0
		return m.switchToSelected()

	case "/upload":
		if len(args) == 0 {
			m.status = m.theme.StatusNo.Render("usage: /upload <path-to-pdf>")
			return m, nil
		}
		return m, uploadCmd(m.ctrl, strings.Join(args, " "))

	case "/market":
		m.status = m.theme.Spinner.Render("refreshing market data…")
		return m, marketCmd(m.ctrl)

	case "/docs":
		m.status = m.documentsSummary()
		return m, nil

	case "/help":
		m.status = "/new  /upload <pdf>  /docs  /market   tab: chats  ctrl+n: new  ctrl+c: quit"
		return m, nil

	default:
		m.status = m.theme.StatusNo.Render("unknown command " + cmd)
		return m, nil
	}
}

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

func (m Model) handleEvent(ev controller.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case controller.SessionListChanged:
		m.refreshSessions()

	case controller.SessionSelected:
		m.sessionID = ev.SessionID
		m.bubbles = nil
		m.documents = nil
		m.loadFromStore()

	case controller.TranscriptUpdated:
		if ev.SessionID == m.sessionID {
			m.setTranscript(ev.Messages)
		}

	case controller.MessagePending:
		if ev.SessionID == m.sessionID {
			m.bubbles = append(m.bubbles, bubble{msg: ev.Message, kind: bubblePending})
			m.renderTranscript()
			m.viewport.GotoBottom()
		}

	case controller.MessageReply:
		if ev.SessionID == m.sessionID {
			m.loadFromStore()
		}
		m.refreshSessions()

	case controller.SendFailed:
		if ev.SessionID == m.sessionID {
			m.bubbles = append(m.bubbles, bubble{msg: ev.Fallback, kind: bubbleError})
			m.renderTranscript()
			m.viewport.GotoBottom()
		}

	case controller.HistoryFetchFailed:
		if ev.SessionID == m.sessionID {
			m.status = m.theme.StatusNo.Render("history fetch failed: " + shortError(ev.Err))
		}

	case controller.DocumentsUpdated:
		if ev.SessionID == m.sessionID {
			m.documents = ev.Documents
		}

	case controller.DocumentUploaded:
		if ev.SessionID == m.sessionID {
			m.documents = append(m.documents, ev.Document)
		}

	case controller.MarketDataRefreshed:
		// Handled via MarketDoneMsg for commands issued here; events
		// from other frontends just update the status line.
		if ev.Err == nil {
			m.status = m.theme.StatusOK.Render("market data refreshed")
		}
	}

	return m, waitForEvent(m.event)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) refreshSessions() {
	m.sessions = m.ctrl.Store().ListByRecency()
	if m.cursor >= len(m.sessions) {
		m.cursor = 0
	}
}

// loadFromStore rebuilds the displayed transcript from persisted state,
// dropping any pending or error bubbles.
func (m *Model) loadFromStore() {
	sess, ok := m.ctrl.Store().Get(m.sessionID)
	if !ok {
		return
	}
	m.setTranscript(sess.Messages)
	m.documents = sess.Documents
}

func (m *Model) setTranscript(msgs []model.Message) {
	m.bubbles = m.bubbles[:0]
	for _, msg := range msgs {
		m.bubbles = append(m.bubbles, bubble{msg: msg, kind: bubblePersisted})
	}
	m.renderTranscript()
	m.viewport.GotoBottom()
}

func (m Model) switchToSelected() (tea.Model, tea.Cmd) {
	id := m.ctrl.Store().SelectedID()
	if id == "" {
		return m, nil
	}
	return m, selectCmd(m.ctrl, id)
}

func (m Model) documentsSummary() string {
	if len(m.documents) == 0 {
		return "no documents in this chat"
	}
	parts := make([]string, len(m.documents))
	for i, d := range m.documents {
		parts[i] = fmt.Sprintf("%s (%s)", d.Name, d.DisplaySize())
	}
	return m.theme.DocumentBadge.Render(strings.Join(parts, "  "))
}

func shortError(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

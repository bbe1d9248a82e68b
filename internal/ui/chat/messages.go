// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finquill/finchat-tui/internal/controller"
)

// =============================================================================
// MESSAGES
// =============================================================================

// EventMsg wraps a controller event for the Bubble Tea update loop.
type EventMsg struct {
	Event controller.Event
}

// SendDoneMsg reports the completion of a send command. The transcript
// itself arrives through controller events; this only clears the
// waiting state.
type SendDoneMsg struct {
	Err error
}

// SelectDoneMsg reports the completion of a session switch.
type SelectDoneMsg struct {
	Err error
}

// UploadDoneMsg reports the completion of an upload command.
type UploadDoneMsg struct {
	Name string
	Err  error
}

// MarketDoneMsg reports the completion of a market data refresh.
type MarketDoneMsg struct {
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForEvent blocks on the controller's event channel and delivers
// the next event. The update loop re-issues it after every EventMsg.
func waitForEvent(events <-chan controller.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

func sendCmd(ctrl *controller.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return SendDoneMsg{Err: ctrl.SendMessage(context.Background(), text)}
	}
}

func selectCmd(ctrl *controller.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		return SelectDoneMsg{Err: ctrl.SelectSession(context.Background(), id)}
	}
}

func uploadCmd(ctrl *controller.Controller, path string) tea.Cmd {
	return func() tea.Msg {
		return UploadDoneMsg{Name: path, Err: ctrl.UploadFile(context.Background(), path)}
	}
}

func marketCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		return MarketDoneMsg{Err: ctrl.RefreshMarketData(context.Background())}
	}
}

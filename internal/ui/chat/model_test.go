// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finquill/finchat-tui/internal/config"
	"github.com/finquill/finchat-tui/internal/controller"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/store"
	"github.com/finquill/finchat-tui/internal/ui/styles"
)

// stubClient satisfies controller.Client with canned responses.
type stubClient struct{}

func (stubClient) ListSessions(ctx context.Context) ([]*model.Session, error) { return nil, nil }
func (stubClient) SessionHistory(ctx context.Context, id string) ([]model.Message, error) {
	return nil, nil
}
func (stubClient) SendMessage(ctx context.Context, id, message string) (model.Message, error) {
	return model.NewAssistantMessage("stub reply", 0.1), nil
}
func (stubClient) UploadDocument(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error) {
	return model.Document{Name: filename, Size: size, UploadedAt: time.Now()}, nil
}
func (stubClient) Documents(ctx context.Context, id string) ([]model.Document, error) {
	return nil, nil
}
func (stubClient) RefreshMarketData(ctx context.Context) error { return nil }

func newTestModel(t *testing.T) (Model, *controller.Controller) {
	t.Helper()
	st := store.New()
	sink := controller.NewChannelSink(64)
	ctrl := controller.New(st, stubClient{}, sink)
	m := NewModel(config.Default(), ctrl, sink.Events(), styles.NewTheme("dark"))
	// Simulate the initial resize so the viewport exists.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), ctrl
}

func TestTranscriptEventRendersMessages(t *testing.T) {
	m, ctrl := newTestModel(t)
	sess := ctrl.CreateSession()
	m.sessionID = sess.ID

	updated, _ := m.handleEvent(controller.TranscriptUpdated{
		SessionID: sess.ID,
		Messages: []model.Message{
			model.NewUserMessage("how is AAPL?"),
			model.NewAssistantMessage("AAPL is **up** today.", 1.5),
		},
	})
	m = updated.(Model)

	if len(m.bubbles) != 2 {
		t.Fatalf("bubbles = %d, want 2", len(m.bubbles))
	}
	view := m.View()
	if !strings.Contains(view, "how is AAPL?") {
		t.Error("user message missing from view")
	}
	if !strings.Contains(view, "up") {
		t.Error("assistant message missing from view")
	}
}

func TestPendingBubbleDroppedOnReply(t *testing.T) {
	m, ctrl := newTestModel(t)
	sess := ctrl.CreateSession()
	m.sessionID = sess.ID

	updated, _ := m.handleEvent(controller.MessagePending{
		SessionID: sess.ID,
		Message:   model.NewUserMessage("pending question"),
	})
	m = updated.(Model)
	if len(m.bubbles) != 1 || m.bubbles[0].kind != bubblePending {
		t.Fatalf("bubbles = %+v, want one pending", m.bubbles)
	}

	// Reply event rebuilds from the store: pending echo replaced by the
	// persisted exchange.
	ctrl.Store().AppendMessages(sess.ID,
		model.NewUserMessage("pending question"),
		model.NewAssistantMessage("answer", 0.3),
	)
	updated, _ = m.handleEvent(controller.MessageReply{
		SessionID: sess.ID,
		Message:   model.NewAssistantMessage("answer", 0.3),
	})
	m = updated.(Model)

	if len(m.bubbles) != 2 {
		t.Fatalf("bubbles = %d, want 2 persisted", len(m.bubbles))
	}
	for _, b := range m.bubbles {
		if b.kind != bubblePersisted {
			t.Errorf("bubble kind = %v, want persisted", b.kind)
		}
	}
}

func TestSendFailedShowsFallbackBubble(t *testing.T) {
	m, ctrl := newTestModel(t)
	sess := ctrl.CreateSession()
	m.sessionID = sess.ID

	updated, _ := m.handleEvent(controller.SendFailed{
		SessionID: sess.ID,
		Fallback:  model.NewAssistantMessage("Something went wrong.", 0),
		Err:       errors.New("boom"),
	})
	m = updated.(Model)

	if len(m.bubbles) != 1 || m.bubbles[0].kind != bubbleError {
		t.Fatalf("bubbles = %+v, want one error bubble", m.bubbles)
	}
	if !strings.Contains(m.View(), "Something went wrong.") {
		t.Error("fallback bubble missing from view")
	}
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.handleCommand("/bogus")
	m = updated.(Model)
	if !strings.Contains(m.status, "/bogus") {
		t.Errorf("status = %q, want mention of the bad command", m.status)
	}
}

func TestDocsCommand(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.handleCommand("/docs")
	m = updated.(Model)
	if !strings.Contains(m.status, "no documents") {
		t.Errorf("status = %q", m.status)
	}

	m.documents = []model.Document{{Name: "q2.pdf", Size: 2048}}
	updated, _ = m.handleCommand("/docs")
	m = updated.(Model)
	if !strings.Contains(m.status, "q2.pdf") {
		t.Errorf("status = %q", m.status)
	}
}

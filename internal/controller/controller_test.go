// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeClient implements Client with overridable behavior per test.
type fakeClient struct {
	listSessions   func(ctx context.Context) ([]*model.Session, error)
	sessionHistory func(ctx context.Context, id string) ([]model.Message, error)
	sendMessage    func(ctx context.Context, id, message string) (model.Message, error)
	uploadDocument func(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error)
	documents      func(ctx context.Context, id string) ([]model.Document, error)
	refreshMarket  func(ctx context.Context) error
}

func (f *fakeClient) ListSessions(ctx context.Context) ([]*model.Session, error) {
	if f.listSessions == nil {
		return nil, nil
	}
	return f.listSessions(ctx)
}

func (f *fakeClient) SessionHistory(ctx context.Context, id string) ([]model.Message, error) {
	if f.sessionHistory == nil {
		return nil, nil
	}
	return f.sessionHistory(ctx, id)
}

func (f *fakeClient) SendMessage(ctx context.Context, id, message string) (model.Message, error) {
	if f.sendMessage == nil {
		return model.NewAssistantMessage("ok", 0.1), nil
	}
	return f.sendMessage(ctx, id, message)
}

func (f *fakeClient) UploadDocument(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error) {
	if f.uploadDocument == nil {
		if err := model.ValidateUpload(model.DetectMediaType(filename), size); err != nil {
			return model.Document{}, err
		}
		return model.Document{Name: filename, Size: size, UploadedAt: time.Now()}, nil
	}
	return f.uploadDocument(ctx, id, filename, size, r)
}

func (f *fakeClient) Documents(ctx context.Context, id string) ([]model.Document, error) {
	if f.documents == nil {
		return nil, nil
	}
	return f.documents(ctx, id)
}

func (f *fakeClient) RefreshMarketData(ctx context.Context) error {
	if f.refreshMarket == nil {
		return nil
	}
	return f.refreshMarket(ctx)
}

// recordSink captures every published event.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *recordSink) count(match func(Event) bool) int {
	n := 0
	for _, ev := range s.all() {
		if match(ev) {
			n++
		}
	}
	return n
}

func newTestController(client *fakeClient) (*Controller, *store.SessionStore, *recordSink) {
	st := store.New()
	sink := &recordSink{}
	return New(st, client, sink), st, sink
}

// =============================================================================
// SESSION LIFECYCLE TESTS
// =============================================================================

func TestCreateSession(t *testing.T) {
	c, st, sink := newTestController(&fakeClient{})

	sess := c.CreateSession()

	if st.SelectedID() != sess.ID {
		t.Errorf("new session should be selected, selected = %q", st.SelectedID())
	}
	got, ok := st.Get(sess.ID)
	if !ok {
		t.Fatal("created session missing from store")
	}
	if !got.Unsynced {
		t.Error("locally created session should start unsynced")
	}
	if got.Title != model.DefaultTitle {
		t.Errorf("title = %q, want %q", got.Title, model.DefaultTitle)
	}

	if sink.count(func(ev Event) bool { _, ok := ev.(SessionSelected); return ok }) != 1 {
		t.Error("expected a SessionSelected event")
	}
}

func TestLoadSessions(t *testing.T) {
	remote := &model.Session{ID: "r1", Title: "Remote", CreatedAt: time.Now()}
	remote.Normalize()
	c, st, _ := newTestController(&fakeClient{
		listSessions: func(ctx context.Context) ([]*model.Session, error) {
			return []*model.Session{remote}, nil
		},
	})

	if err := c.LoadSessions(context.Background()); err != nil {
		t.Fatalf("LoadSessions failed: %v", err)
	}
	if _, ok := st.Get("r1"); !ok {
		t.Error("remote session not in store")
	}
}

func TestSelectSessionUnknown(t *testing.T) {
	c, _, _ := newTestController(&fakeClient{})

	err := c.SelectSession(context.Background(), "ghost")
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSelectSessionUnsyncedEmptySkipsHistory(t *testing.T) {
	historyCalled := false
	docsCalled := false
	client := &fakeClient{
		sessionHistory: func(ctx context.Context, id string) ([]model.Message, error) {
			historyCalled = true
			return nil, nil
		},
		documents: func(ctx context.Context, id string) ([]model.Document, error) {
			docsCalled = true
			return []model.Document{{Name: "a.pdf", Size: 10}}, nil
		},
	}
	c, st, _ := newTestController(client)

	sess := c.CreateSession()
	if err := c.SelectSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("SelectSession failed: %v", err)
	}

	if historyCalled {
		t.Error("history must not be fetched for an unsynced empty session")
	}
	if !docsCalled {
		t.Error("documents should be fetched")
	}
	got, _ := st.Get(sess.ID)
	if len(got.Documents) != 1 {
		t.Errorf("documents = %d, want 1", len(got.Documents))
	}
}

func TestSelectSessionFetchesBoth(t *testing.T) {
	serverMsgs := []model.Message{
		model.NewUserMessage("hi"),
		model.NewAssistantMessage("hello", 1.2),
	}
	client := &fakeClient{
		sessionHistory: func(ctx context.Context, id string) ([]model.Message, error) {
			return serverMsgs, nil
		},
		documents: func(ctx context.Context, id string) ([]model.Document, error) {
			return []model.Document{{Name: "q2.pdf", Size: 2048}}, nil
		},
	}
	c, st, sink := newTestController(client)

	st.Upsert(&model.Session{ID: "s1", Title: "S", CreatedAt: time.Now()})

	if err := c.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SelectSession failed: %v", err)
	}

	got, _ := st.Get("s1")
	if len(got.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(got.Messages))
	}
	if got.Unsynced {
		t.Error("history fetch should mark the session synced")
	}
	if len(got.Documents) != 1 {
		t.Errorf("documents = %d, want 1", len(got.Documents))
	}
	if sink.count(func(ev Event) bool { _, ok := ev.(TranscriptUpdated); return ok }) == 0 {
		t.Error("expected a TranscriptUpdated event")
	}
}

func TestSelectSessionRendersLocalTranscriptImmediately(t *testing.T) {
	block := make(chan struct{})
	client := &fakeClient{
		sessionHistory: func(ctx context.Context, id string) ([]model.Message, error) {
			<-block
			return nil, errors.New("slow")
		},
		documents: func(ctx context.Context, id string) ([]model.Document, error) {
			<-block
			return nil, errors.New("slow")
		},
	}
	c, st, sink := newTestController(client)

	sess := &model.Session{ID: "s1", CreatedAt: time.Now()}
	sess.Messages = []model.Message{model.NewUserMessage("cached")}
	st.Upsert(sess)

	done := make(chan error, 1)
	go func() { done <- c.SelectSession(context.Background(), "s1") }()

	// The cached transcript must surface before either fetch settles.
	deadline := time.After(2 * time.Second)
	for {
		if sink.count(func(ev Event) bool { _, ok := ev.(TranscriptUpdated); return ok }) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("local transcript was not rendered before fetches settled")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(block)
	if err := <-done; err == nil {
		t.Error("expected fetch errors to propagate")
	}
}

func TestSelectSessionFetchErrorsAreIndependent(t *testing.T) {
	histErr := errors.New("history down")
	client := &fakeClient{
		sessionHistory: func(ctx context.Context, id string) ([]model.Message, error) {
			return nil, histErr
		},
		documents: func(ctx context.Context, id string) ([]model.Document, error) {
			return []model.Document{{Name: "ok.pdf", Size: 5}}, nil
		},
	}
	c, st, sink := newTestController(client)
	st.Upsert(&model.Session{ID: "s1", CreatedAt: time.Now()})

	err := c.SelectSession(context.Background(), "s1")
	if !errors.Is(err, histErr) {
		t.Errorf("err = %v, want history error", err)
	}

	// The document fetch still landed.
	got, _ := st.Get("s1")
	if len(got.Documents) != 1 {
		t.Error("successful document fetch should apply despite history failure")
	}
	if sink.count(func(ev Event) bool { _, ok := ev.(HistoryFetchFailed); return ok }) != 1 {
		t.Error("expected a HistoryFetchFailed event")
	}
}

// =============================================================================
// SEND FLOW TESTS
// =============================================================================

func TestSendMessageSuccess(t *testing.T) {
	client := &fakeClient{
		sendMessage: func(ctx context.Context, id, message string) (model.Message, error) {
			return model.NewAssistantMessage("AAPL is up.", 2.1), nil
		},
	}
	c, st, sink := newTestController(client)
	sess := c.CreateSession()

	if err := c.SendMessage(context.Background(), "how is AAPL?"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	got, _ := st.Get(sess.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("persisted messages = %d, want exactly user+assistant", len(got.Messages))
	}
	if got.Messages[0].Role != model.RoleUser || got.Messages[0].Content != "how is AAPL?" {
		t.Errorf("message 0 = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != model.RoleAssistant || got.Messages[1].TimeTaken != 2.1 {
		t.Errorf("message 1 = %+v", got.Messages[1])
	}
	if got.Unsynced {
		t.Error("a confirmed exchange should mark the session synced")
	}

	if sink.count(func(ev Event) bool { _, ok := ev.(MessagePending); return ok }) != 1 {
		t.Error("expected one MessagePending event")
	}
	if sink.count(func(ev Event) bool { _, ok := ev.(MessageReply); return ok }) != 1 {
		t.Error("expected one MessageReply event")
	}
}

func TestSendMessageFailureLeavesTranscriptUntouched(t *testing.T) {
	sendErr := errors.New("backend exploded")
	client := &fakeClient{
		sendMessage: func(ctx context.Context, id, message string) (model.Message, error) {
			return model.Message{}, sendErr
		},
	}
	c, st, sink := newTestController(client)
	sess := c.CreateSession()
	st.AppendMessages(sess.ID, model.NewUserMessage("old"), model.NewAssistantMessage("old reply", 1))

	err := c.SendMessage(context.Background(), "new question")
	if !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want send error", err)
	}

	// Nothing persisted: a later retry cannot double-append.
	got, _ := st.Get(sess.ID)
	if len(got.Messages) != 2 {
		t.Errorf("persisted messages = %d, want unchanged 2", len(got.Messages))
	}

	var failed *SendFailed
	for _, ev := range sink.all() {
		if f, ok := ev.(SendFailed); ok {
			failed = &f
		}
	}
	if failed == nil {
		t.Fatal("expected a SendFailed event")
	}
	if failed.Fallback.Role != model.RoleAssistant || failed.Fallback.Content == "" {
		t.Errorf("fallback bubble = %+v", failed.Fallback)
	}
}

func TestSendMessageGuardReleasedAfterFailure(t *testing.T) {
	calls := 0
	client := &fakeClient{
		sendMessage: func(ctx context.Context, id, message string) (model.Message, error) {
			calls++
			if calls == 1 {
				return model.Message{}, errors.New("transient")
			}
			return model.NewAssistantMessage("second try worked", 0.2), nil
		},
	}
	c, _, _ := newTestController(client)
	c.CreateSession()

	if err := c.SendMessage(context.Background(), "q"); err == nil {
		t.Fatal("first send should fail")
	}
	if c.SendInFlight() {
		t.Fatal("guard still held after a failed send")
	}
	if err := c.SendMessage(context.Background(), "q"); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
}

func TestSendMessageRejectsConcurrentSend(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		sendMessage: func(ctx context.Context, id, message string) (model.Message, error) {
			close(entered)
			<-release
			return model.NewAssistantMessage("done", 1), nil
		},
	}
	c, _, _ := newTestController(client)
	c.CreateSession()

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(context.Background(), "first") }()
	<-entered

	err := c.SendMessage(context.Background(), "second")
	if !errors.Is(err, model.ErrSendInFlight) {
		t.Errorf("err = %v, want ErrSendInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if c.SendInFlight() {
		t.Error("guard still held after completion")
	}
}

func TestSendMessageValidation(t *testing.T) {
	c, _, _ := newTestController(&fakeClient{})

	if err := c.SendMessage(context.Background(), "   \n"); !errors.Is(err, model.ErrEmptyMessage) {
		t.Errorf("blank message: err = %v, want ErrEmptyMessage", err)
	}

	if err := c.SendMessage(context.Background(), "hello"); !errors.Is(err, model.ErrNoActiveSession) {
		t.Errorf("no selection: err = %v, want ErrNoActiveSession", err)
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestUploadDocument(t *testing.T) {
	c, st, sink := newTestController(&fakeClient{})
	sess := c.CreateSession()

	err := c.UploadDocument(context.Background(), "report.pdf", 512, strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}

	got, _ := st.Get(sess.ID)
	if len(got.Documents) != 1 || got.Documents[0].Name != "report.pdf" {
		t.Errorf("documents = %#v", got.Documents)
	}
	if sink.count(func(ev Event) bool { _, ok := ev.(DocumentUploaded); return ok }) != 1 {
		t.Error("expected a DocumentUploaded event")
	}
}

func TestUploadDocumentRejectsNonPDF(t *testing.T) {
	c, st, _ := newTestController(&fakeClient{})
	sess := c.CreateSession()

	err := c.UploadDocument(context.Background(), "notes.txt", 10, strings.NewReader("x"))
	if !errors.Is(err, model.ErrBadDocumentType) {
		t.Errorf("err = %v, want ErrBadDocumentType", err)
	}
	got, _ := st.Get(sess.ID)
	if len(got.Documents) != 0 {
		t.Error("rejected upload must not be recorded")
	}
}

func TestUploadDocumentNeedsSelection(t *testing.T) {
	c, _, _ := newTestController(&fakeClient{})

	err := c.UploadDocument(context.Background(), "a.pdf", 10, strings.NewReader("x"))
	if !errors.Is(err, model.ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

// =============================================================================
// MARKET DATA TESTS
// =============================================================================

func TestRefreshMarketData(t *testing.T) {
	refreshErr := errors.New("fetch failed")
	client := &fakeClient{
		refreshMarket: func(ctx context.Context) error { return refreshErr },
	}
	c, _, sink := newTestController(client)

	if err := c.RefreshMarketData(context.Background()); !errors.Is(err, refreshErr) {
		t.Errorf("err = %v, want refresh error", err)
	}

	var ev *MarketDataRefreshed
	for _, e := range sink.all() {
		if m, ok := e.(MarketDataRefreshed); ok {
			ev = &m
		}
	}
	if ev == nil || !errors.Is(ev.Err, refreshErr) {
		t.Errorf("MarketDataRefreshed event = %+v", ev)
	}
}

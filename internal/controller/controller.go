// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller coordinates session state between the store, the
// backend client, and whatever frontend is attached.
//
// All mutation goes through the controller: it owns the optimistic
// send flow, the in-flight guard, and the fetch orchestration on
// session switch. Frontends subscribe to its events and render; they
// never write to the store directly.
package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/finquill/finchat-tui/internal/api"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/store"
)

// sendFallbackText is the display-only assistant bubble shown when a
// send fails. It is never persisted.
const sendFallbackText = "Something went wrong while generating a response. Please try again."

// Client is the backend surface the controller needs. *api.Client
// satisfies it; tests substitute fakes.
type Client interface {
	ListSessions(ctx context.Context) ([]*model.Session, error)
	SessionHistory(ctx context.Context, id string) ([]model.Message, error)
	SendMessage(ctx context.Context, id, message string) (model.Message, error)
	UploadDocument(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error)
	Documents(ctx context.Context, id string) ([]model.Document, error)
	RefreshMarketData(ctx context.Context) error
}

var _ Client = (*api.Client)(nil)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives all session operations.
type Controller struct {
	store  *store.SessionStore
	client Client
	sink   EventSink

	mu       sync.Mutex
	inFlight bool // one send at a time, across all sessions
}

// New creates a controller. A nil sink discards events.
func New(st *store.SessionStore, client Client, sink EventSink) *Controller {
	if sink == nil {
		sink = discardSink{}
	}
	return &Controller{
		store:  st,
		client: client,
		sink:   sink,
	}
}

// Store exposes the underlying session store for read access.
func (c *Controller) Store() *store.SessionStore {
	return c.store
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// LoadSessions pulls the full session list from the backend into the
// store. Called once on startup; the backend is the source of truth
// for anything it has seen.
func (c *Controller) LoadSessions(ctx context.Context) error {
	sessions, err := c.client.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		c.store.Upsert(sess)
	}
	c.sink.Publish(SessionListChanged{})
	return nil
}

// CreateSession makes a new empty local session and selects it. The
// backend learns about the session on its first message; until then it
// exists only client-side.
func (c *Controller) CreateSession() *model.Session {
	sess := model.NewSession()
	c.store.Upsert(sess)
	if err := c.store.Select(sess.ID); err != nil {
		// Unreachable: the session was just inserted.
		log.Printf("controller: select after create failed: %v", err)
	}
	c.sink.Publish(SessionListChanged{})
	c.sink.Publish(SessionSelected{SessionID: sess.ID})
	return sess
}

// SelectSession switches the active session and refreshes its state
// from the backend.
//
// A locally created session the backend has not seen yet only gets a
// document fetch; asking for its history would 500 against a chat row
// that does not exist. For known sessions, history and documents are
// fetched concurrently, and a transcript already cached locally is
// surfaced immediately so switching feels instant. The two fetches
// fail independently; the call returns after both settle.
func (c *Controller) SelectSession(ctx context.Context, id string) error {
	if err := c.store.Select(id); err != nil {
		return err
	}
	c.sink.Publish(SessionSelected{SessionID: id})

	sess, ok := c.store.Get(id)
	if !ok {
		return model.ErrSessionNotFound
	}

	if len(sess.Messages) > 0 {
		c.sink.Publish(TranscriptUpdated{SessionID: id, Messages: sess.Messages})
	}

	fetchHistory := !(sess.Unsynced && sess.IsEmpty())

	var wg sync.WaitGroup
	var historyErr, docsErr error

	if fetchHistory {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs, err := c.client.SessionHistory(ctx, id)
			if err != nil {
				historyErr = err
				c.sink.Publish(HistoryFetchFailed{SessionID: id, Err: err})
				return
			}
			c.store.SetMessages(id, msgs)
			c.sink.Publish(TranscriptUpdated{SessionID: id, Messages: msgs})
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		docs, err := c.client.Documents(ctx, id)
		if err != nil {
			docsErr = err
			c.sink.Publish(DocumentsFetchFailed{SessionID: id, Err: err})
			return
		}
		c.store.SetDocuments(id, docs)
		c.sink.Publish(DocumentsUpdated{SessionID: id, Documents: docs})
	}()

	wg.Wait()
	return errors.Join(historyErr, docsErr)
}

// =============================================================================
// MESSAGE FLOW
// =============================================================================

// SendMessage runs the full send flow for the active session: an
// optimistic display-only echo of the user's text, the blocking
// backend call, then a single atomic append of both turns on success.
//
// Only one send may be in flight at a time, across all sessions; a
// second send while one is pending fails fast with ErrSendInFlight.
// On failure nothing is persisted: the user sees a fallback bubble and
// the stored transcript is exactly what it was before the call, so a
// retry cannot double-append.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.ErrEmptyMessage
	}
	id := c.store.SelectedID()
	if id == "" {
		return model.ErrNoActiveSession
	}

	if !c.acquireSend() {
		return model.ErrSendInFlight
	}
	defer c.releaseSend()

	userMsg := model.NewUserMessage(text)
	c.sink.Publish(MessagePending{SessionID: id, Message: userMsg})

	reply, err := c.client.SendMessage(ctx, id, text)
	if err != nil {
		log.Printf("controller: send failed for session %s: %v", id, err)
		c.sink.Publish(SendFailed{
			SessionID: id,
			Fallback:  model.NewAssistantMessage(sendFallbackText, 0),
			Err:       err,
		})
		return err
	}

	c.store.AppendMessages(id, userMsg, reply)
	c.store.MarkSynced(id)
	c.sink.Publish(MessageReply{SessionID: id, Message: reply})
	c.sink.Publish(SessionListChanged{})
	return nil
}

func (c *Controller) acquireSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return false
	}
	c.inFlight = true
	return true
}

// releaseSend clears the guard. Called on every exit path from
// SendMessage, success or not, so a failure can never leave sends
// locked out.
func (c *Controller) releaseSend() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// SendInFlight reports whether a send is currently awaiting its reply.
func (c *Controller) SendInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// UploadDocument uploads a document to the active session. Validation
// runs before any network traffic.
func (c *Controller) UploadDocument(ctx context.Context, filename string, size int64, r io.Reader) error {
	id := c.store.SelectedID()
	if id == "" {
		return model.ErrNoActiveSession
	}

	doc, err := c.client.UploadDocument(ctx, id, filename, size, r)
	if err != nil {
		return err
	}
	c.store.AppendDocument(id, doc)
	c.sink.Publish(DocumentUploaded{SessionID: id, Document: doc})
	return nil
}

// UploadFile uploads a file from disk to the active session.
func (c *Controller) UploadFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.UploadDocument(ctx, info.Name(), info.Size(), f)
}

// =============================================================================
// MARKET DATA
// =============================================================================

// RefreshMarketData triggers the backend's stock data refresh and
// reports completion through the sink as well as the return value.
func (c *Controller) RefreshMarketData(ctx context.Context) error {
	err := c.client.RefreshMarketData(ctx)
	c.sink.Publish(MarketDataRefreshed{Err: err})
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import "github.com/finquill/finchat-tui/internal/model"

// =============================================================================
// EVENTS
// =============================================================================

// Event is a state-change notification emitted by the controller. The
// UI renders from these instead of polling the store.
type Event interface {
	isEvent()
}

// SessionListChanged signals that the set of sessions or their recency
// order changed and session lists should re-render.
type SessionListChanged struct{}

// SessionSelected signals that a session became the active one.
type SessionSelected struct {
	SessionID string
}

// TranscriptUpdated signals that a session's persisted transcript
// changed, either from a server history fetch or a completed send.
type TranscriptUpdated struct {
	SessionID string
	Messages  []model.Message
}

// MessagePending carries the optimistic echo of a just-sent user
// message. It is display-only: the message is persisted into the store
// only when the backend confirms the exchange.
type MessagePending struct {
	SessionID string
	Message   model.Message
}

// MessageReply carries the assistant's reply to a completed send.
type MessageReply struct {
	SessionID string
	Message   model.Message
}

// SendFailed signals that a send did not complete. Fallback is a
// display-only assistant bubble describing the failure; it is never
// written to the store.
type SendFailed struct {
	SessionID string
	Fallback  model.Message
	Err       error
}

// HistoryFetchFailed signals that a transcript fetch failed. Any
// locally cached transcript stays on screen.
type HistoryFetchFailed struct {
	SessionID string
	Err       error
}

// DocumentsUpdated signals that a session's document list was refreshed
// from the server.
type DocumentsUpdated struct {
	SessionID string
	Documents []model.Document
}

// DocumentsFetchFailed signals that a document list fetch failed.
type DocumentsFetchFailed struct {
	SessionID string
	Err       error
}

// DocumentUploaded signals a successful upload.
type DocumentUploaded struct {
	SessionID string
	Document  model.Document
}

// MarketDataRefreshed signals the completion of a market data refresh.
// Err is nil on success.
type MarketDataRefreshed struct {
	Err error
}

func (SessionListChanged) isEvent()   {}
func (SessionSelected) isEvent()      {}
func (TranscriptUpdated) isEvent()    {}
func (MessagePending) isEvent()       {}
func (MessageReply) isEvent()         {}
func (SendFailed) isEvent()           {}
func (HistoryFetchFailed) isEvent()   {}
func (DocumentsUpdated) isEvent()     {}
func (DocumentsFetchFailed) isEvent() {}
func (DocumentUploaded) isEvent()     {}
func (MarketDataRefreshed) isEvent()  {}

// =============================================================================
// EVENT SINKS
// =============================================================================

// EventSink receives controller events. Publish must not block for
// long; controller operations run on the caller's goroutine.
type EventSink interface {
	Publish(Event)
}

// ChannelSink delivers events over a buffered channel, dropping events
// when the buffer is full so a stalled consumer cannot wedge the
// controller.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Publish implements EventSink.
func (s *ChannelSink) Publish(ev Event) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// discardSink swallows events. Used when no consumer is attached.
type discardSink struct{}

func (discardSink) Publish(Event) {}

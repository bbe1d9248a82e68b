// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the finchat backend.
//
// The backend exposes a small REST surface under /api: chat history,
// message generation, per-chat document upload, and a market data
// refresh trigger. All responses are JSON; timestamps come over the
// wire as ISO-8601 strings with a trailing Z.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/finquill/finchat-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL of a locally running backend.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout is the default timeout for API requests. Message
	// generation runs a retrieval pipeline server-side, so this is
	// deliberately generous.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// ErrServerUnreachable wraps transport-level failures so callers can
// distinguish "backend down" from an error the backend returned.
var ErrServerUnreachable = errors.New("backend unreachable")

// =============================================================================
// API ERRORS
// =============================================================================

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// IsNotFound reports whether the error is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// errorResponse covers both error shapes the backend emits:
// {"error": "..."} from handled failures and {"detail": "..."} from
// framework-level rejections.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// wireMessage is one transcript entry as the backend serializes it. The
// assistant's wire role is "model".
type wireMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// wireDocument is one uploaded document as the backend serializes it.
type wireDocument struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

// wireChat is the per-chat record inside the history map.
type wireChat struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Messages  []wireMessage  `json:"messages"`
	Documents []wireDocument `json:"document"`
}

type historyListResponse struct {
	History map[string]wireChat `json:"history"`
}

type historyResponse struct {
	History []wireMessage `json:"history"`
}

type sendResponse struct {
	Content  string `json:"content"`
	Metadata struct {
		TimeTaken float64 `json:"time_taken"`
	} `json:"metadata"`
}

type documentsResponse struct {
	Documents []wireDocument `json:"documents"`
}

// parseWireTime decodes the backend's ISO-8601 timestamps. Unparseable
// or empty values yield the zero time rather than an error; a bad
// timestamp should not make a whole transcript undisplayable.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (w wireMessage) toModel() model.Message {
	return model.Message{
		Role:      model.ParseRole(w.Role),
		Content:   w.Content,
		Timestamp: parseWireTime(w.Timestamp),
	}
}

func (w wireDocument) toModel() model.Document {
	return model.Document{
		Name:       w.Name,
		Size:       w.Size,
		UploadedAt: parseWireTime(w.UploadedAt),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is an HTTP client for the finchat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for the backend at the given base URL.
// An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: "finchat/0.1.0",
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client, keeping any
// configured timeout. Used by tests and by callers that need custom
// transports.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do executes a request and decodes a 2xx JSON response into out.
// Non-2xx responses are mapped to *APIError. There is no retry layer:
// callers surface failures to the user, who decides whether to try
// again.
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()
	log.Printf("api: %s %s -> %d (%v)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readBody reads a response body with a size cap so a misbehaving
// server cannot exhaust memory.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

func decodeError(status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	detail := er.Error
	if detail == "" {
		detail = er.Detail
	}
	return &APIError{Status: status, Detail: detail}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// ListSessions fetches every chat the backend knows about, with full
// transcripts and document lists, ordered by last activity (newest
// first).
func (c *Client) ListSessions(ctx context.Context) ([]*model.Session, error) {
	var res historyListResponse
	if err := c.getJSON(ctx, "/chat/history", &res); err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(res.History))
	for id, chat := range res.History {
		sess := &model.Session{
			ID:        id,
			Title:     chat.Title,
			CreatedAt: parseWireTime(chat.CreatedAt),
			UpdatedAt: parseWireTime(chat.UpdatedAt),
		}
		for _, m := range chat.Messages {
			sess.Messages = append(sess.Messages, m.toModel())
		}
		for _, d := range chat.Documents {
			sess.Documents = append(sess.Documents, d.toModel())
		}
		sess.Normalize()
		sessions = append(sessions, sess)
	}
	// The wire format is a map, so impose a deterministic order here.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastActivity().After(sessions[j].LastActivity())
	})
	return sessions, nil
}

// SessionHistory fetches the transcript of one chat.
func (c *Client) SessionHistory(ctx context.Context, id string) ([]model.Message, error) {
	var res historyResponse
	if err := c.getJSON(ctx, "/chat/history/"+url.PathEscape(id), &res); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(res.History))
	for _, m := range res.History {
		msgs = append(msgs, m.toModel())
	}
	return msgs, nil
}

// SendMessage submits a user message to a chat and returns the
// assistant's reply. The backend takes the message as a query
// parameter, not a body. Generation is synchronous server-side, so
// this blocks for the full pipeline run.
func (c *Client) SendMessage(ctx context.Context, id, message string) (model.Message, error) {
	if strings.TrimSpace(message) == "" {
		return model.Message{}, model.ErrEmptyMessage
	}

	endpoint := fmt.Sprintf("%s/chat/usermessage/%s?message=%s",
		c.baseURL, url.PathEscape(id), url.QueryEscape(message))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to create request: %w", err)
	}

	var res sendResponse
	if err := c.do(req, &res); err != nil {
		return model.Message{}, err
	}
	return model.NewAssistantMessage(res.Content, res.Metadata.TimeTaken), nil
}

// =============================================================================
// DOCUMENT ENDPOINTS
// =============================================================================

// UploadDocument uploads a PDF to a chat as a multipart form. The
// caller validates name, type, and size before any bytes hit the wire;
// the backend enforces the same rules.
func (c *Client) UploadDocument(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error) {
	if err := model.ValidateUpload(model.DetectMediaType(filename), size); err != nil {
		return model.Document{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return model.Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Document{}, fmt.Errorf("failed to build upload: %w", err)
	}

	endpoint := c.baseURL + "/document_upload/upload/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.do(req, nil); err != nil {
		return model.Document{}, err
	}
	return model.Document{Name: filename, Size: size, UploadedAt: time.Now()}, nil
}

// Documents fetches the documents attached to a chat. The backend
// answers 404 for a chat with no documents; that is an empty list, not
// an error.
func (c *Client) Documents(ctx context.Context, id string) ([]model.Document, error) {
	var res documentsResponse
	err := c.getJSON(ctx, "/document_upload/documents/"+url.PathEscape(id), &res)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	docs := make([]model.Document, 0, len(res.Documents))
	for _, d := range res.Documents {
		docs = append(docs, d.toModel())
	}
	return docs, nil
}

// =============================================================================
// MARKET DATA
// =============================================================================

// RefreshMarketData asks the backend to re-fetch stock market data into
// its vector store. The call is synchronous and can take a while.
func (c *Client) RefreshMarketData(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stock_market/update_stock_data", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, nil)
}

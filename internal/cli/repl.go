// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/finquill/finchat-tui/internal/archive"
	"github.com/finquill/finchat-tui/internal/config"
	"github.com/finquill/finchat-tui/internal/controller"
	"github.com/finquill/finchat-tui/internal/markdown"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/ui/styles"
	"github.com/finquill/finchat-tui/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineInput wraps liner with persistent history in the config directory.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput() *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.Dir(); err == nil {
		historyFile = filepath.Join(dir, "history")
	}

	in := &lineInput{line: line, historyFile: historyFile}
	in.loadHistory()
	return in
}

func (in *lineInput) loadHistory() {
	if in.historyFile == "" {
		return
	}
	f, err := os.Open(in.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	in.line.ReadHistory(f)
}

func (in *lineInput) saveHistory() {
	if in.historyFile == "" {
		return
	}
	f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	in.line.WriteHistory(f)
}

// read prompts for one line. io.EOF is returned for both ctrl-c and
// ctrl-d so the caller has a single exit path.
func (in *lineInput) read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	input = strings.TrimSpace(input)
	if input != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

func (in *lineInput) close() {
	in.saveHistory()
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-based chat loop used when stdout is not a terminal
// capable of the full-screen UI, or when --plain is given.
type REPL struct {
	cfg   *config.Config
	ctrl  *controller.Controller
	arch  *archive.Archive // nil when archiving is disabled
	theme *styles.Theme
	out   io.Writer
}

// NewREPL builds a REPL. arch may be nil.
func NewREPL(cfg *config.Config, ctrl *controller.Controller, arch *archive.Archive, theme *styles.Theme) *REPL {
	return &REPL{cfg: cfg, ctrl: ctrl, arch: arch, theme: theme, out: os.Stdout}
}

// Run drives the prompt loop until /quit, ctrl-c, or ctrl-d.
func (r *REPL) Run(ctx context.Context) error {
	in := newLineInput()
	defer in.close()

	fmt.Fprintln(r.out, "finchat - type a question, /help for commands")
	r.ensureSession(ctx)

	for {
		input, err := in.read("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "bye")
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.out, "bye")
			return nil
		}
		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(ctx, input); quit {
				return nil
			}
			continue
		}
		r.send(ctx, input)
	}
}

// ensureSession selects the most recent session, creating one when the
// list is empty.
func (r *REPL) ensureSession(ctx context.Context) {
	if err := r.ctrl.LoadSessions(ctx); err != nil {
		fmt.Fprintf(r.out, "warning: could not load sessions: %v\n", err)
	}
	sessions := r.ctrl.Store().ListByRecency()
	if len(sessions) == 0 {
		r.ctrl.CreateSession()
		return
	}
	if err := r.ctrl.SelectSession(ctx, sessions[0].ID); err != nil {
		fmt.Fprintf(r.out, "warning: %v\n", err)
	}
}

func (r *REPL) send(ctx context.Context, text string) {
	if _, ok := r.ctrl.Store().Selected(); !ok {
		r.ctrl.CreateSession()
	}

	fmt.Fprintln(r.out, "thinking...")
	if err := r.ctrl.SendMessage(ctx, text); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}

	sess, ok := r.ctrl.Store().Selected()
	if !ok || len(sess.Messages) == 0 {
		return
	}
	reply := sess.Messages[len(sess.Messages)-1]
	r.printReply(reply)
}

func (r *REPL) printReply(msg model.Message) {
	body := markdown.FormatMessage(msg.Content, r.theme.MarkdownStyle())
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, body)
	if r.cfg.UI.ShowStats && msg.TimeTaken > 0 {
		fmt.Fprintf(r.out, "(%s)\n", msg.FormatStats())
	}
	fmt.Fprintln(r.out)
}

// handleCommand dispatches a slash command. It returns true when the
// loop should exit.
func (r *REPL) handleCommand(ctx context.Context, input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		fmt.Fprintln(r.out, "bye")
		return true

	case "/help":
		fmt.Fprint(r.out, replHelp)

	case "/new":
		sess := r.ctrl.CreateSession()
		fmt.Fprintf(r.out, "started %s\n", sess.DisplayTitle())

	case "/sessions":
		r.printSessions()

	case "/select":
		r.selectSession(ctx, rest)

	case "/docs":
		r.printDocuments()

	case "/upload":
		if rest == "" {
			fmt.Fprintln(r.out, "usage: /upload <path-to-pdf>")
			break
		}
		if err := r.ctrl.UploadFile(ctx, rest); err != nil {
			fmt.Fprintf(r.out, "upload failed: %v\n", err)
			break
		}
		fmt.Fprintf(r.out, "uploaded %s\n", filepath.Base(rest))

	case "/market":
		if err := r.ctrl.RefreshMarketData(ctx); err != nil {
			fmt.Fprintf(r.out, "market refresh failed: %v\n", err)
			break
		}
		fmt.Fprintln(r.out, "market data refreshed")

	case "/search":
		r.search(rest)

	case "/forget":
		r.forget(rest)

	default:
		fmt.Fprintf(r.out, "unknown command %s, try /help\n", cmd)
	}
	return false
}

func (r *REPL) printSessions() {
	sessions := r.ctrl.Store().ListByRecency()
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "no sessions")
		return
	}
	width := TerminalWidth()
	selected := r.ctrl.Store().SelectedID()
	for i, sess := range sessions {
		marker := " "
		if sess.ID == selected {
			marker = "*"
		}
		meta := sess.Meta()
		line := fmt.Sprintf("%s %2d  %s", marker, i+1, meta.Title)
		if meta.MessageCount > 0 {
			line += fmt.Sprintf("  (%d messages)", meta.MessageCount)
		}
		if meta.Preview != "" {
			line += "  " + meta.Preview
		}
		fmt.Fprintln(r.out, util.TruncateWidth(line, width))
	}
}

// selectSession accepts either a 1-based index from /sessions or a
// session id.
func (r *REPL) selectSession(ctx context.Context, arg string) {
	if arg == "" {
		fmt.Fprintln(r.out, "usage: /select <number|id>")
		return
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		sessions := r.ctrl.Store().ListByRecency()
		if n < 1 || n > len(sessions) {
			fmt.Fprintf(r.out, "no session %d\n", n)
			return
		}
		id = sessions[n-1].ID
	}
	if err := r.ctrl.SelectSession(ctx, id); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	sess, ok := r.ctrl.Store().Selected()
	if !ok {
		return
	}
	fmt.Fprintf(r.out, "switched to %s\n", sess.DisplayTitle())
	for _, msg := range sess.Messages {
		if msg.Role == model.RoleUser {
			fmt.Fprintf(r.out, "> %s\n", msg.Content)
			continue
		}
		fmt.Fprintln(r.out, markdown.FormatMessage(msg.Content, r.theme.MarkdownStyle()))
	}
}

func (r *REPL) printDocuments() {
	sess, ok := r.ctrl.Store().Selected()
	if !ok {
		fmt.Fprintln(r.out, "no active session")
		return
	}
	if len(sess.Documents) == 0 {
		fmt.Fprintln(r.out, "no documents")
		return
	}
	for _, doc := range sess.Documents {
		fmt.Fprintf(r.out, "  %s  %s\n", doc.Name, doc.DisplaySize())
	}
}

// forget removes a chat from the local archive. The backend copy and
// the in-memory session are untouched; the row returns on the next
// write-through if the chat is still live.
func (r *REPL) forget(arg string) {
	if arg == "" {
		fmt.Fprintln(r.out, "usage: /forget <number|id>")
		return
	}
	if r.arch == nil {
		fmt.Fprintln(r.out, "archive is disabled, /forget is unavailable")
		return
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		sessions := r.ctrl.Store().ListByRecency()
		if n < 1 || n > len(sessions) {
			fmt.Fprintf(r.out, "no session %d\n", n)
			return
		}
		id = sessions[n-1].ID
	}
	if err := r.arch.DeleteSession(id); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "removed %s from the local archive\n", id)
}

func (r *REPL) search(query string) {
	if query == "" {
		fmt.Fprintln(r.out, "usage: /search <term>")
		return
	}
	if r.arch == nil {
		fmt.Fprintln(r.out, "archive is disabled, /search is unavailable")
		return
	}
	hits, err := r.arch.Search(query, 10)
	if err != nil {
		fmt.Fprintf(r.out, "search failed: %v\n", err)
		return
	}
	if len(hits) == 0 {
		fmt.Fprintln(r.out, "no matches")
		return
	}
	for _, hit := range hits {
		fmt.Fprintf(r.out, "  [%s] %s: %s\n", hit.Title, hit.Role, hit.Snippet)
	}
}

const replHelp = `Commands:
  /new            Start a new chat
  /sessions       List chats, most recent first
  /select N       Switch to chat N (or a chat id)
  /docs           List documents in the current chat
  /upload PATH    Upload a PDF to the current chat
  /market         Refresh stock market data on the server
  /search TERM    Full-text search across archived chats
  /forget N       Remove chat N from the local archive
  /help           This help
  /quit           Exit
`

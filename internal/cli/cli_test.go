// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/finquill/finchat-tui/internal/archive"
	"github.com/finquill/finchat-tui/internal/config"
	"github.com/finquill/finchat-tui/internal/controller"
	"github.com/finquill/finchat-tui/internal/model"
	"github.com/finquill/finchat-tui/internal/store"
	"github.com/finquill/finchat-tui/internal/ui/styles"
	"github.com/finquill/finchat-tui/internal/util"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    Args
		wantErr bool
	}{
		{
			name: "empty",
			raw:  nil,
			want: Args{},
		},
		{
			name: "server with separate value",
			raw:  []string{"--server", "http://host:9000/api"},
			want: Args{ServerURL: "http://host:9000/api"},
		},
		{
			name: "server with equals value",
			raw:  []string{"--server=http://host:9000/api"},
			want: Args{ServerURL: "http://host:9000/api"},
		},
		{
			name: "short flags",
			raw:  []string{"-p", "-s", "http://x/api"},
			want: Args{Plain: true, ServerURL: "http://x/api"},
		},
		{
			name: "theme and watch",
			raw:  []string{"--theme", "light", "--watch", "/tmp/drop"},
			want: Args{Theme: "light", WatchDir: "/tmp/drop"},
		},
		{
			name: "version and help",
			raw:  []string{"--version", "--help"},
			want: Args{ShowVersion: true, ShowHelp: true},
		},
		{
			name:    "missing value",
			raw:     []string{"--server"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			raw:     []string{"--frobnicate"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// stubClient satisfies controller.Client without a real server.
type stubClient struct{}

func (stubClient) ListSessions(ctx context.Context) ([]*model.Session, error) { return nil, nil }
func (stubClient) SessionHistory(ctx context.Context, id string) ([]model.Message, error) {
	return nil, nil
}
func (stubClient) SendMessage(ctx context.Context, id, text string) (model.Message, error) {
	return model.NewAssistantMessage("**TSLA** is up", 1.2), nil
}
func (stubClient) UploadDocument(ctx context.Context, id, filename string, size int64, r io.Reader) (model.Document, error) {
	return model.Document{Name: filename, Size: size}, nil
}
func (stubClient) Documents(ctx context.Context, id string) ([]model.Document, error) {
	return nil, nil
}
func (stubClient) RefreshMarketData(ctx context.Context) error { return nil }

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	ctrl := controller.New(store.New(), stubClient{}, nil)
	r := NewREPL(cfg, ctrl, nil, styles.NewTheme("dark"))
	var out bytes.Buffer
	r.out = &out
	return r, &out
}

func TestREPLNewAndSessions(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	if quit := r.handleCommand(ctx, "/new"); quit {
		t.Fatal("/new should not quit")
	}
	if !strings.Contains(out.String(), "started "+model.DefaultTitle) {
		t.Fatalf("missing start line: %q", out.String())
	}

	out.Reset()
	r.handleCommand(ctx, "/sessions")
	if !strings.Contains(out.String(), "*  1  "+model.DefaultTitle) {
		t.Fatalf("active session not marked: %q", out.String())
	}
}

func TestREPLSessionListClampedToTerminalWidth(t *testing.T) {
	r, out := newTestREPL(t)
	sess := r.ctrl.CreateSession()
	r.ctrl.Store().AppendMessages(sess.ID,
		model.NewUserMessage(strings.Repeat("what is the market outlook ", 10)))

	out.Reset()
	r.handleCommand(context.Background(), "/sessions")

	limit := TerminalWidth()
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if w := util.StringWidth(line); w > limit {
			t.Errorf("line width %d exceeds terminal width %d: %q", w, limit, line)
		}
	}
}

func TestREPLSelectByIndex(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	first := r.ctrl.CreateSession()
	r.ctrl.Store().SetTitle(first.ID, "Earnings Q2")
	r.ctrl.CreateSession()

	out.Reset()
	r.handleCommand(ctx, "/select 2")
	if !strings.Contains(out.String(), "switched to Earnings Q2") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if r.ctrl.Store().SelectedID() != first.ID {
		t.Fatal("selection did not move")
	}
}

func TestREPLSendPrintsReply(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	r.send(ctx, "how is tesla doing")
	if !strings.Contains(out.String(), "TSLA") {
		t.Fatalf("reply not printed: %q", out.String())
	}
	if !strings.Contains(out.String(), "1.2s") {
		t.Fatalf("stats not printed: %q", out.String())
	}
}

func TestREPLForget(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	arch, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { arch.Close() })
	r.arch = arch

	sess := r.ctrl.CreateSession()
	stored, _ := r.ctrl.Store().Get(sess.ID)
	if err := arch.SaveSession(stored); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	out.Reset()
	r.handleCommand(ctx, "/forget 1")
	if !strings.Contains(out.String(), "removed") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	archived, err := arch.LoadSessions()
	if err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if len(archived) != 0 {
		t.Errorf("archive still holds %d sessions", len(archived))
	}
}

func TestREPLForgetWithoutArchive(t *testing.T) {
	r, out := newTestREPL(t)

	r.handleCommand(context.Background(), "/forget 1")
	if !strings.Contains(out.String(), "archive is disabled") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestREPLSearchWithoutArchive(t *testing.T) {
	r, out := newTestREPL(t)

	r.handleCommand(context.Background(), "/search tesla")
	if !strings.Contains(out.String(), "archive is disabled") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestREPLUnknownCommand(t *testing.T) {
	r, out := newTestREPL(t)

	r.handleCommand(context.Background(), "/wat")
	if !strings.Contains(out.String(), "unknown command /wat") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

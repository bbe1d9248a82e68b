// finchat - a terminal client for the finchat financial RAG backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finquill/finchat-tui/internal/api"
	"github.com/finquill/finchat-tui/internal/archive"
	"github.com/finquill/finchat-tui/internal/cli"
	"github.com/finquill/finchat-tui/internal/config"
	"github.com/finquill/finchat-tui/internal/controller"
	"github.com/finquill/finchat-tui/internal/store"
	"github.com/finquill/finchat-tui/internal/ui/chat"
	"github.com/finquill/finchat-tui/internal/ui/styles"
	"github.com/finquill/finchat-tui/internal/watcher"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const watchDebounce = 500 * time.Millisecond

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, cli.Usage())
		os.Exit(2)
	}
	if args.ShowHelp {
		fmt.Print(cli.Usage())
		return
	}
	if args.ShowVersion {
		fmt.Printf("finchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args cli.Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyArgs(cfg, args)

	// Diagnostics go to a file; stderr writes would tear the altscreen.
	if logFile := openLogFile(); logFile != nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
	st := store.New()
	sink := controller.NewChannelSink(64)

	// The archive tees write-through copies of completed exchanges, so
	// the controller publishes through it on the way to the UI.
	var arch *archive.Archive
	var events controller.EventSink = sink
	if cfg.Archive.Enabled && cfg.Archive.Path != "" {
		arch, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Printf("archive: disabled: %v", err)
		} else {
			defer arch.Close()
			events = &archivingSink{next: sink, store: st, arch: arch}
		}
	}

	ctrl := controller.New(st, client, events)

	ctx := context.Background()
	if err := ctrl.LoadSessions(ctx); err != nil {
		log.Printf("startup: session list unavailable: %v", err)
		seedFromArchive(st, arch)
	}

	if cfg.Server.RefreshMarketOnStart {
		go func() {
			if err := ctrl.RefreshMarketData(ctx); err != nil {
				log.Printf("startup: market refresh: %v", err)
			}
		}()
	}

	if cfg.Watch.Enabled && cfg.Watch.Dir != "" {
		dw, err := watcher.New(cfg.Watch.Dir, ctrl, watchDebounce)
		if err != nil {
			log.Printf("watch: disabled: %v", err)
		} else {
			if err := dw.Watch(); err != nil {
				log.Printf("watch: disabled: %v", err)
			} else {
				defer dw.Close()
			}
		}
	}

	theme := styles.NewTheme(cfg.UI.Theme)

	if cfg.UI.Plain || !cli.IsTTY() || !cli.IsStdoutTTY() {
		return cli.NewREPL(cfg, ctrl, arch, theme).Run(ctx)
	}

	model := chat.NewModel(cfg, ctrl, sink.Events(), theme)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// openLogFile opens ~/.finchat/finchat.log for appending. A nil return
// leaves logging on stderr, which only happens when the config
// directory itself is unusable.
func openLogFile() *os.File {
	dir, err := config.Dir()
	if err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "finchat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return f
}

// applyArgs layers command-line flags over the loaded config. Flags win
// over both the file and the environment.
func applyArgs(cfg *config.Config, args cli.Args) {
	if args.ServerURL != "" {
		cfg.Server.BaseURL = args.ServerURL
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	if args.Plain {
		cfg.UI.Plain = true
	}
	if args.WatchDir != "" {
		cfg.Watch.Enabled = true
		cfg.Watch.Dir = args.WatchDir
	}
}

// seedFromArchive fills the store with archived sessions when the
// backend cannot be reached, so old transcripts stay browsable offline.
func seedFromArchive(st *store.SessionStore, arch *archive.Archive) {
	if arch == nil {
		return
	}
	sessions, err := arch.LoadSessions()
	if err != nil {
		log.Printf("archive: load: %v", err)
		return
	}
	for _, sess := range sessions {
		st.Upsert(sess)
	}
}

// archivingSink persists the affected session on state-changing events
// before forwarding them to the UI sink.
type archivingSink struct {
	next  controller.EventSink
	store *store.SessionStore
	arch  *archive.Archive
}

func (s *archivingSink) Publish(ev controller.Event) {
	switch e := ev.(type) {
	case controller.TranscriptUpdated:
		s.save(e.SessionID)
	case controller.MessageReply:
		s.save(e.SessionID)
	case controller.DocumentsUpdated:
		s.save(e.SessionID)
	case controller.DocumentUploaded:
		s.save(e.SessionID)
	}
	s.next.Publish(ev)
}

func (s *archivingSink) save(id string) {
	sess, ok := s.store.Get(id)
	if !ok {
		return
	}
	if err := s.arch.SaveSession(sess); err != nil {
		log.Printf("archive: save %s: %v", id, err)
	}
}

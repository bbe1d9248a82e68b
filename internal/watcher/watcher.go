// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watcher uploads PDFs dropped into a watched folder to the
// active session.
//
// Dropping a report into ~/.finchat/uploads (or whatever watch.dir is
// set to) is equivalent to running /upload on it. Writes are debounced
// so a file still being copied is not uploaded half-finished.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Uploader is the part of the controller the watcher needs.
type Uploader interface {
	UploadFile(ctx context.Context, path string) error
}

// =============================================================================
// DROP FOLDER WATCHER
// =============================================================================

// DropWatcher watches one directory and uploads PDFs that land in it.
type DropWatcher struct {
	dir      string
	uploader Uploader
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // path -> last write time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a watcher for dir. The directory is created if missing.
func New(dir string, uploader Uploader, debounce time.Duration) (*DropWatcher, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DropWatcher{
		dir:      dir,
		uploader: uploader,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. It returns immediately; events are handled on
// background goroutines until Close.
func (w *DropWatcher) Watch() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and releases resources.
func (w *DropWatcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *DropWatcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.handleFileChange(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// handleFileChange records a changed PDF for debounced upload. Every
// write refreshes the timestamp, so the upload fires only after the
// file has been quiet for the debounce window.
func (w *DropWatcher) handleFileChange(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *DropWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				if err := w.uploader.UploadFile(w.ctx, path); err != nil {
					log.Printf("watcher: upload %s failed: %v", filepath.Base(path), err)
					continue
				}
				log.Printf("watcher: uploaded %s", filepath.Base(path))
			}
		}
	}
}

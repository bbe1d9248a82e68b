// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordUploader) UploadFile(ctx context.Context, path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	return nil
}

func (u *recordUploader) uploaded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.paths...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestDroppedPDFIsUploaded(t *testing.T) {
	dir := t.TempDir()
	up := &recordUploader{}

	w, err := New(dir, up, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	target := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(target, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(up.uploaded()) == 1 }) {
		t.Fatalf("uploads = %v, want one", up.uploaded())
	}
	if up.uploaded()[0] != target {
		t.Errorf("uploaded %q, want %q", up.uploaded()[0], target)
	}
}

func TestNonPDFIsIgnored(t *testing.T) {
	dir := t.TempDir()
	up := &recordUploader{}

	w, err := New(dir, up, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := up.uploaded(); len(got) != 0 {
		t.Errorf("uploads = %v, want none", got)
	}
}

func TestRepeatedWritesUploadOnce(t *testing.T) {
	dir := t.TempDir()
	up := &recordUploader{}

	w, err := New(dir, up, 150*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	// Simulate a slow copy: several writes in quick succession.
	target := filepath.Join(dir, "big.pdf")
	for i := 0; i < 4; i++ {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			t.Fatal(err)
		}
		f.WriteString("chunk")
		f.Close()
		time.Sleep(30 * time.Millisecond)
	}

	if !waitFor(t, 3*time.Second, func() bool { return len(up.uploaded()) >= 1 }) {
		t.Fatal("file was never uploaded")
	}
	time.Sleep(300 * time.Millisecond)
	if got := up.uploaded(); len(got) != 1 {
		t.Errorf("uploads = %d, want exactly 1 after debounce", len(got))
	}
}

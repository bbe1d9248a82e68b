// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"mime"
	"path/filepath"
	"time"

	"github.com/finquill/finchat-tui/internal/util"
)

// Upload constraints enforced client-side before any network call.
const (
	// PDFMediaType is the only document type the backend accepts.
	PDFMediaType = "application/pdf"

	// MaxDocumentSize is the upload size limit in bytes (10 MiB).
	MaxDocumentSize = 10 * 1024 * 1024
)

// Document describes a file uploaded to a session.
type Document struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DisplaySize returns the document size with binary unit scaling.
func (d Document) DisplaySize() string {
	return util.FormatBytes(d.Size)
}

// DetectMediaType maps a filename to its media type by extension,
// falling back to application/octet-stream for unknown extensions.
func DetectMediaType(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// ValidateUpload checks a candidate upload against the backend's
// constraints. It returns ErrBadDocumentType for anything that is not a
// PDF and ErrDocumentTooLarge for files over MaxDocumentSize; the limit
// itself is accepted.
func ValidateUpload(mediaType string, size int64) error {
	if mediaType != PDFMediaType {
		return ErrBadDocumentType
	}
	if size > MaxDocumentSize {
		return ErrDocumentTooLarge
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

// Binary (1024-based) size units as reported for uploaded documents.
// The backend reports sizes in raw bytes; display uses B/KB/MB/GB scaling.
const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatBytes renders a byte count with binary unit scaling.
// Values below 1 KiB are shown as whole bytes; larger values get one
// decimal place.
func FormatBytes(n int64) string {
	switch {
	case n >= gib:
		return FloatToStringPrec(float64(n)/float64(gib), 1) + " GB"
	case n >= mib:
		return FloatToStringPrec(float64(n)/float64(mib), 1) + " MB"
	case n >= kib:
		return FloatToStringPrec(float64(n)/float64(kib), 1) + " KB"
	default:
		return Int64ToString(n) + " B"
	}
}

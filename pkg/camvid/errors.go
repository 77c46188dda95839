// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import "github.com/pkg/errors"

// Errors returned by the package are wrapped around one of the sentinel errors below,
// so they can be checked with errors.Is.
var (
	// ErrValidation is returned for invalid arguments, e.g. an unknown split name or a class index
	// outside the palette.
	ErrValidation = errors.New("camvid: invalid argument")

	// ErrNotFound is returned when a label file is missing for an image, when a path is outside the
	// dataset root, or when a split directory doesn't exist.
	ErrNotFound = errors.New("camvid: not found")

	// ErrFormat is returned when a label image doesn't have the expected single-channel layout.
	ErrFormat = errors.New("camvid: unexpected label format")

	// ErrIndex is returned for sample indices outside [0, Len()).
	ErrIndex = errors.New("camvid: index out of range")

	// ErrUnsupported is returned by operations that are deliberately not implemented, like Download.
	ErrUnsupported = errors.New("camvid: unsupported operation")
)

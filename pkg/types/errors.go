// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors for the formatting pipeline. Callers match them with
// errors.Is; producing code wraps them with fmt.Errorf("...: %w", ...)
// so the chain keeps both the category and the detail.
var (
	// ErrInvalidInput marks an empty or otherwise unusable document.
	// Raised before any chunk is processed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration marks bad chunking parameters.
	// Raised before any chunk is processed.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCompletionFailure marks a failed completion-service call for a
	// single chunk. The session records it and moves on.
	ErrCompletionFailure = errors.New("completion failure")

	// ErrExtractionFailed marks a completion result from which no text
	// could be recovered. Treated like ErrCompletionFailure.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrPersistenceFailure marks a context load or save error. Load
	// failures degrade to an empty context; save failures surface to the
	// caller without discarding produced output.
	ErrPersistenceFailure = errors.New("persistence failure")
)

package recorder

import "codeberg.org/velka/musedaq/internal/errors"

const (
	// Capture errors
	ErrNotStreaming = errors.ErrorCode("recorder_not_streaming")
	ErrReadyTimeout = errors.ErrorCode("recorder_ready_timeout")
	ErrCancelled    = errors.ErrorCode("recording_cancelled")

	// Artifact errors
	ErrInvalidFormat = errors.ErrorCode("recording_invalid_format")
	ErrWriteFailed   = errors.ErrorCode("recording_write_failed")
)

package stream

import "codeberg.org/velka/musedaq/internal/errors"

const (
	// Lifecycle errors
	ErrNotStarted  = errors.ErrorCode("stream_not_started")
	ErrStopTimeout = errors.ErrorCode("stream_stop_timeout")

	// Query errors
	ErrUnknownGroup = errors.ErrorCode("stream_unknown_group")
)

package device

import "codeberg.org/velka/musedaq/internal/errors"

const (
	// Session errors
	ErrUnknownDevice = errors.ErrorCode("unknown_device")
	ErrPrepareFailed = errors.ErrorCode("device_prepare_failed")
	ErrReleaseFailed = errors.ErrorCode("device_release_failed")

	// Streaming errors
	ErrConfigFailed     = errors.ErrorCode("device_config_failed")
	ErrStartFailed      = errors.ErrorCode("device_start_failed")
	ErrStopFailed       = errors.ErrorCode("device_stop_failed")
	ErrPollFailed       = errors.ErrorCode("device_poll_failed")
	ErrNotPrepared      = errors.ErrorCode("device_not_prepared")
	ErrStreamNotStarted = errors.ErrorCode("device_stream_not_started")
)

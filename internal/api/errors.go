package api

import "codeberg.org/velka/musedaq/internal/errors"

const (
	ErrBadRequest   = errors.ErrorCode("api_bad_request")
	ErrJobNotFound  = errors.ErrorCode("api_job_not_found")
	ErrServerFailed = errors.ErrorCode("api_server_failed")
)

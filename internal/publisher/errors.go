package publisher

import "codeberg.org/mutker/ipmifanctl/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrPublishFailed  = errors.ErrPublishFailed
	ErrPublishTimeout = errors.ErrTimeout
	ErrInvalidOutcome = errors.ErrorCode("publisher_invalid_outcome")
)

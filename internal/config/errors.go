package config

import "codeberg.org/mutker/ipmifanctl/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrBindFlags       = errors.ErrBindFlags
	ErrReadConfig      = errors.ErrReadConfig
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrInvalidBands    = errors.ErrInvalidBands
)

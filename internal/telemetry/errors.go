package telemetry

import "codeberg.org/mutker/ipmifanctl/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInitTelemetry   = errors.ErrInitMetrics
	ErrExportTelemetry = errors.ErrorCode("telemetry_export_failed")
	ErrInvalidOutcome  = errors.ErrorCode("telemetry_invalid_outcome")
)

package metrics

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")

	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("metrics_transaction_failed")

	ErrStorageInit     = errors.ErrInitFailed
	ErrStorageClose    = errors.ErrShutdownFailed
	ErrServiceShutdown = errors.ErrCloseMetrics

	ErrMetricsCollection = errors.ErrCollectMetrics
	ErrInvalidMetrics    = errors.ErrorCode("metrics_invalid_record")
	ErrOperationTimeout  = errors.ErrTimeout
)

// phase identifies the journal step that failed.
type phase struct {
	Name   string
	Target string // table or file the step worked on, if any
	Cause  string
}

func (p phase) String() string {
	parts := []string{p.Name}
	if p.Target != "" {
		parts = append(parts, p.Target)
	}
	return fmt.Sprintf("%s: %s", strings.Join(parts, " "), p.Cause)
}

func phaseError(code errors.ErrorCode, name, target string, err error) errors.Error {
	return errors.New().WithData(code, phase{Name: name, Target: target, Cause: err.Error()})
}

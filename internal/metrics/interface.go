package metrics

import (
	"database/sql"
	"time"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

// Collector is the cycle journal as seen by the control loop.
type Collector interface {
	control.Recorder
	Close() error
}

// CycleRepository stores cycle records.
type CycleRepository interface {
	Record(record *CycleRecord) error
	Close() error
}

// CycleRecord is one row of the journal.
type CycleRecord struct {
	ID          string
	Started     time.Time
	Finished    time.Time
	Host        string
	Temperature sql.NullFloat64
	Duty        sql.NullInt64
	Action      string
	ErrorCode   sql.NullString
	ErrorDetail sql.NullString
}

// FromOutcome converts a control loop outcome into a journal record.
func FromOutcome(o *control.Outcome) *CycleRecord {
	record := &CycleRecord{
		ID:       o.ID,
		Started:  o.Started,
		Finished: o.Finished,
		Host:     o.Address,
		Action:   string(o.Action),
	}

	if o.HasTemperature {
		record.Temperature = sql.NullFloat64{Float64: o.Temperature, Valid: true}
	}
	if o.HasDuty {
		record.Duty = sql.NullInt64{Int64: int64(o.Duty), Valid: true}
	}
	if o.Err != nil {
		if code := errors.CodeOf(o.Err); code != "" {
			record.ErrorCode = sql.NullString{String: string(code), Valid: true}
		}
		record.ErrorDetail = sql.NullString{String: o.Err.Error(), Valid: true}
	}

	return record
}

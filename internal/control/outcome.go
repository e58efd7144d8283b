package control

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/ipmifanctl/internal/fan"
)

// Action is what a cycle ended up doing with the fans.
type Action string

const (
	ActionApplied   Action = "applied"
	ActionNoReading Action = "no_reading"
	ActionNoBand    Action = "no_band"
	ActionFailed    Action = "failed"
)

// Outcome is the observable record of one cycle.
type Outcome struct {
	ID             string
	Started        time.Time
	Finished       time.Time
	Address        string
	Temperature    float64
	HasTemperature bool
	Duty           fan.Duty
	HasDuty        bool
	Action         Action
	Err            error
}

// Duration is how long the cycle took.
func (o *Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Summary is a one-line, human-readable description of the outcome.
func (o *Outcome) Summary() string {
	temp := "no reading"
	if o.HasTemperature {
		temp = fmt.Sprintf("%.1f°C", o.Temperature)
	}

	switch o.Action {
	case ActionApplied:
		return fmt.Sprintf("%s, duty %d%% applied", temp, o.Duty)
	case ActionFailed:
		return fmt.Sprintf("%s, duty %d%% failed: %v", temp, o.Duty, o.Err)
	case ActionNoBand:
		return fmt.Sprintf("%s, no action", temp)
	default:
		if o.Err != nil {
			return fmt.Sprintf("%s, no action: %v", temp, o.Err)
		}
		return fmt.Sprintf("%s, no action", temp)
	}
}

// Recorder receives every outcome. Implementations must not block for long;
// errors are logged by the loop and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, outcome *Outcome) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, outcome *Outcome) error

func (f RecorderFunc) Record(ctx context.Context, outcome *Outcome) error {
	return f(ctx, outcome)
}

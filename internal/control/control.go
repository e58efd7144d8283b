// Package control runs the periodic read, decide, actuate cycle.
package control

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/fan"
	"codeberg.org/mutker/ipmifanctl/internal/ipmi"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
	"codeberg.org/mutker/ipmifanctl/internal/sensor"
	"github.com/google/uuid"
)

const DefaultInterval = 100 * time.Second

// State of the scheduler.
type State int32

const (
	StateIdle State = iota
	StatePolling
)

func (s State) String() string {
	if s == StatePolling {
		return "polling"
	}

	return "idle"
}

// ConfigSource yields the endpoint snapshot for a cycle.
type ConfigSource interface {
	Get() endpoint.Config
}

// TemperatureReader reads the CPU temperature for an endpoint.
type TemperatureReader interface {
	Read(ctx context.Context, cfg endpoint.Config) sensor.Reading
}

// DutyPolicy maps a temperature to a fan duty.
type DutyPolicy interface {
	DutyFor(temperature float64) (fan.Duty, bool)
}

type Config struct {
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, c.Interval.String())
	}

	return nil
}

// Loop is the control loop scheduler.
type Loop struct {
	cfg       Config
	source    ConfigSource
	reader    TemperatureReader
	policy    DutyPolicy
	runner    ipmi.Runner
	recorders []Recorder
	logger    logger.Logger
	now       func() time.Time

	state  atomic.Int32
	cycles atomic.Uint64
}

type Option func(*Loop)

// WithRecorders adds outcome recorders, called in order after each cycle.
func WithRecorders(recorders ...Recorder) Option {
	return func(l *Loop) {
		l.recorders = append(l.recorders, recorders...)
	}
}

func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		l.logger = log
	}
}

// WithClock replaces time.Now for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

func New(
	cfg Config, source ConfigSource, reader TemperatureReader, policy DutyPolicy, runner ipmi.Runner, opts ...Option,
) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		cfg:    cfg,
		source: source,
		reader: reader,
		policy: policy,
		runner: runner,
		logger: logger.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// State reports whether a cycle is in flight.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Run executes a cycle immediately and then one cycle per interval,
// measured from the end of the previous cycle, until ctx is cancelled.
// A cycle that has started always runs to completion.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().
		Dur("interval", l.cfg.Interval).
		Msg("Control loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Uint64("cycles", l.Cycles()).Msg("Control loop stopped")
			return nil
		case <-timer.C:
			l.RunCycle(context.WithoutCancel(ctx))
			timer.Reset(l.cfg.Interval)
		}
	}
}

// RunCycle performs one poll, decide, actuate cycle and records its outcome.
func (l *Loop) RunCycle(ctx context.Context) *Outcome {
	l.state.Store(int32(StatePolling))
	defer l.state.Store(int32(StateIdle))

	outcome := &Outcome{
		ID:      uuid.NewString(),
		Started: l.now(),
	}

	l.cycle(ctx, outcome)

	outcome.Finished = l.now()
	l.cycles.Add(1)
	l.record(ctx, outcome)

	return outcome
}

func (l *Loop) cycle(ctx context.Context, outcome *Outcome) {
	defer func() {
		if v := recover(); v != nil {
			outcome.Action = ActionFailed
			outcome.Err = errors.New().WithData(errors.ErrCyclePanic, fmt.Sprint(v))
		}
	}()

	cfg := l.source.Get()
	outcome.Address = cfg.Address

	reading := l.reader.Read(ctx, cfg)
	if !reading.Present {
		outcome.Action = ActionNoReading
		outcome.Err = reading.Cause
		return
	}
	outcome.Temperature = reading.Celsius
	outcome.HasTemperature = true

	duty, ok := l.policy.DutyFor(reading.Celsius)
	if !ok {
		outcome.Action = ActionNoBand
		return
	}
	outcome.Duty = duty
	outcome.HasDuty = true

	if _, err := l.runner.Execute(ctx, cfg, ipmi.SetFanDutyArgs(uint8(duty))...); err != nil {
		outcome.Action = ActionFailed
		outcome.Err = err
		return
	}
	outcome.Action = ActionApplied
}

func (l *Loop) record(ctx context.Context, outcome *Outcome) {
	l.logOutcome(outcome)

	for _, r := range l.recorders {
		if err := safeRecord(ctx, r, outcome); err != nil {
			l.logger.Warn().Err(err).Str("cycle", outcome.ID).Msg("Failed to record cycle outcome")
		}
	}
}

func safeRecord(ctx context.Context, r Recorder, outcome *Outcome) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.New().WithData(errors.ErrCollectMetrics, fmt.Sprint(v))
		}
	}()

	return r.Record(ctx, outcome)
}

func (l *Loop) logOutcome(o *Outcome) {
	var event *logger.LogEvent
	switch o.Action {
	case ActionApplied, ActionNoBand:
		event = l.logger.Info()
	default:
		event = l.logger.Warn()
	}

	event.
		Str("cycle", o.ID).
		Time("started", o.Started).
		Str("host", o.Address).
		Str("action", string(o.Action)).
		Dur("took", o.Duration())

	if o.HasTemperature {
		event.Float64("temperature", o.Temperature)
	}
	if o.HasDuty {
		event.Uint8("duty", uint8(o.Duty))
	}
	if o.Err != nil {
		event.Str("error_code", string(errors.CodeOf(o.Err))).Err(o.Err)
	}

	event.Msg(o.Summary())
}

package telemetry

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const namespace = "ipmifanctl"

// Collector turns cycle outcomes into Prometheus series.
type Collector interface {
	control.Recorder
	Close() error
}

type service struct {
	registry    *prometheus.Registry
	cycles      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	temperature prometheus.Gauge
	duty        prometheus.Gauge
	duration    prometheus.Histogram

	textfile string
	logger   logger.Logger
	mu       sync.Mutex
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	svc, err := newService(prometheus.NewRegistry(), cfg.Textfile, log)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitTelemetry, err)
	}

	log.Debug().
		Str("textfile", cfg.Textfile).
		Msg("Telemetry collectors registered")

	return svc, nil
}

func newService(reg *prometheus.Registry, textfile string, log logger.Logger) (*service, error) {
	s := &service{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Control cycles completed, by action taken.",
		}, []string{"action"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Cycles that reported an error, by error code.",
		}, []string{"code"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last temperature read from the monitored sensor.",
		}),
		duty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fan_duty_percent",
			Help:      "Last fan duty successfully applied.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a control cycle, including both tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		textfile: textfile,
		logger:   log,
	}

	for _, c := range []prometheus.Collector{s.cycles, s.failures, s.temperature, s.duty, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *service) Record(_ context.Context, outcome *control.Outcome) error {
	if outcome == nil {
		return errors.New().New(ErrInvalidOutcome)
	}

	s.cycles.WithLabelValues(string(outcome.Action)).Inc()
	if outcome.Err != nil {
		code := errors.CodeOf(outcome.Err)
		if code == "" {
			code = errors.ErrInternal
		}
		s.failures.WithLabelValues(string(code)).Inc()
	}
	if outcome.HasTemperature {
		s.temperature.Set(outcome.Temperature)
	}
	if outcome.Action == control.ActionApplied {
		s.duty.Set(float64(outcome.Duty))
	}
	if !outcome.Finished.IsZero() {
		s.duration.Observe(outcome.Duration().Seconds())
	}

	return s.export()
}

func (s *service) Close() error {
	return s.export()
}

// export rewrites the textfile, if one is configured.
func (s *service) export() error {
	if s.textfile == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := prometheus.WriteToTextfile(s.textfile, s.registry); err != nil {
		return errors.New().WithData(ErrExportTelemetry, struct {
			Path  string
			Error string
		}{
			Path:  s.textfile,
			Error: err.Error(),
		})
	}

	return nil
}

func (*noopCollector) Record(_ context.Context, _ *control.Outcome) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}

package metrics

import (
	"context"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

type service struct {
	repo CycleRepository
	cfg  Config
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the journal is disabled, return a no-op collector
	if !cfg.Enabled {
		log.Debug().Msg("Cycle journal disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create cycle journal")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Cycle journal service initialized successfully")

	return newService(repo, cfg), nil
}

func newService(repo CycleRepository, cfg Config) *service {
	return &service{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *service) Record(ctx context.Context, outcome *control.Outcome) error {
	errFactory := errors.New()

	if outcome == nil || outcome.ID == "" {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(FromOutcome(outcome)); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopCollector) Record(_ context.Context, _ *control.Outcome) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}

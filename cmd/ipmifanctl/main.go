package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/ipmifanctl/internal/config"
	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/fan"
	"codeberg.org/mutker/ipmifanctl/internal/ipmi"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
	"codeberg.org/mutker/ipmifanctl/internal/metrics"
	"codeberg.org/mutker/ipmifanctl/internal/operator"
	"codeberg.org/mutker/ipmifanctl/internal/pid"
	"codeberg.org/mutker/ipmifanctl/internal/publisher"
	"codeberg.org/mutker/ipmifanctl/internal/sensor"
	"codeberg.org/mutker/ipmifanctl/internal/telemetry"
)

type closer interface {
	Close() error
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	headless := cfg.Headless || logger.IsService() || !isatty.IsTerminal(os.Stdout.Fd())

	logFile, err := initLogger(cfg, headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if cfg.File != "" {
		logger.Debug().Str("path", cfg.File).Msg("Config loaded")
	} else {
		logger.Debug().Msg("Config loaded from defaults and environment")
	}

	if err := run(cfg, headless); err != nil {
		if logFile == nil {
			// Logs may have been discarded while the form was up.
			logger.Init(logger.Options{Output: os.Stderr, IsService: logger.IsService()})
		}
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Exiting")
		}
		logger.Fatal().Err(err).Msg("Exiting")
	}
}

// initLogger sends logs to the terminal in headless mode. Otherwise the
// form owns the terminal and logs go to the log file, or nowhere.
func initLogger(cfg *config.Config, headless bool) (*os.File, error) {
	level, _ := logger.ParseLevel(cfg.LogLevel)
	opts := logger.Options{
		Level:     level,
		IsService: logger.IsService(),
	}

	var file *os.File
	switch {
	case cfg.LogFile != "":
		var err error
		file, err = os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, err
		}
		opts.Output = file
		opts.NoColor = true
	case headless:
		opts.Output = os.Stdout
	default:
		opts.Output = io.Discard
	}

	logger.Init(opts)

	return file, nil
}

func run(cfg *config.Config, headless bool) error {
	log := logger.Default()

	guard, err := pid.Acquire(cfg.PIDFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn().Err(err).Str("path", guard.Path()).Msg("Failed to remove PID file")
		}
	}()

	table, err := fan.NewTable(cfg.Bands)
	if err != nil {
		return err
	}
	for _, gap := range table.Gaps() {
		logger.Info().
			Float64("above", gap[0]).
			Float64("up_to", gap[1]).
			Msg("Fan duty is left unchanged for readings in this range")
	}

	store := endpoint.NewStore(cfg.Endpoint)
	tool := ipmi.NewTool(cfg.Interface, log)
	reader := sensor.NewReader(tool, cfg.Sensor, log)

	recorders, closers, err := buildRecorders(cfg, log)
	defer closeAll(closers)
	if err != nil {
		return err
	}

	var feed *operator.Feed
	if !headless {
		feed = operator.NewFeed(0)
		recorders = append(recorders, feed)
	}

	loop, err := control.New(
		control.Config{Interval: cfg.Interval},
		store, reader, table, tool,
		control.WithRecorders(recorders...),
		control.WithLogger(log),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("endpoint", store.Get().String()).
		Str("sensor", reader.Label()).
		Str("bands", table.String()).
		Bool("headless", headless).
		Msg("Starting fan controller")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Control loop failed")
		}
	}()

	if headless {
		<-ctx.Done()
	} else {
		if err := operator.Run(ctx, operator.New(store, feed, cfg.Interval)); err != nil {
			logger.Error().Err(err).Msg("Operator form failed")
		}
		cancel()
	}

	// A cycle in flight finishes before the loop returns.
	wg.Wait()
	logger.Info().Uint64("cycles", loop.Cycles()).Msg("Exiting...")

	return nil
}

// buildRecorders returns the outcome sinks that are enabled. Closers are
// returned even on error so partially built sinks can be released.
func buildRecorders(cfg *config.Config, log logger.Logger) ([]control.Recorder, []closer, error) {
	var (
		recorders []control.Recorder
		closers   []closer
	)

	journal, err := metrics.NewService(cfg.Metrics, log)
	if err != nil {
		return nil, closers, err
	}
	recorders = append(recorders, journal)
	closers = append(closers, journal)

	collectors, err := telemetry.NewService(cfg.Telemetry, log)
	if err != nil {
		return nil, closers, err
	}
	recorders = append(recorders, collectors)
	closers = append(closers, collectors)

	mqtt, err := publisher.New(cfg.MQTT, log)
	if err != nil {
		return nil, closers, err
	}
	recorders = append(recorders, mqtt)
	closers = append(closers, mqtt)

	return recorders, closers, nil
}

func closeAll(closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close recorder")
		}
	}
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}

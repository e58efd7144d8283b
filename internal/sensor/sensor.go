// Package sensor extracts temperature readings from ipmitool sensor listings.
package sensor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/ipmi"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const DefaultLabel = "CPU1_Temp"

// Reading is one temperature sample. When Present is false the sample is
// absent and Cause says why.
type Reading struct {
	Celsius float64
	Present bool
	Cause   error
}

func (r Reading) String() string {
	if !r.Present {
		return "no reading"
	}

	return fmt.Sprintf("%.1f°C", r.Celsius)
}

// Reader reads one labelled temperature sensor through a Runner.
type Reader struct {
	runner  ipmi.Runner
	label   string
	pattern *regexp.Regexp
	logger  logger.Logger
}

func NewReader(runner ipmi.Runner, label string, log logger.Logger) *Reader {
	if label == "" {
		label = DefaultLabel
	}
	if log == nil {
		log = logger.Default()
	}

	return &Reader{
		runner:  runner,
		label:   label,
		pattern: linePattern(label),
		logger:  log,
	}
}

// Label returns the sensor name the reader looks for.
func (r *Reader) Label() string {
	return r.label
}

// Read lists the sensors and returns the labelled temperature. Failures
// of any kind produce an absent reading, never an error.
func (r *Reader) Read(ctx context.Context, cfg endpoint.Config) Reading {
	out, err := r.runner.Execute(ctx, cfg, ipmi.SensorListArgs()...)
	if err != nil {
		return Reading{Cause: err}
	}

	celsius, ok := parse(r.pattern, out)
	if !ok {
		r.logger.Debug().Str("sensor", r.label).Msg("Sensor line not found in output")
		return Reading{Cause: errors.New().WithData(errors.ErrSensorUnavailable, r.label)}
	}

	return Reading{Celsius: celsius, Present: true}
}

// ParseTemperature finds "<label> | <value> | degrees C" in sensor output.
func ParseTemperature(output, label string) (float64, bool) {
	return parse(linePattern(label), output)
}

// The unit marker is the only case-insensitive part of the line.
func linePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(label) + `\s+\|\s+(-?[\d.]+)\s+\|\s+(?i:degrees C)`)
}

func parse(pattern *regexp.Regexp, output string) (float64, bool) {
	match := pattern.FindStringSubmatch(output)
	if match == nil {
		return 0, false
	}

	celsius, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return celsius, true
}

package sensor_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensorListing = `CPU0_Temp        | 41.000     | degrees C  | ok    | na        | na        | na        | 89.000    | 90.000    | na
CPU1_Temp        | 45.000     | degrees C  | ok    | na        | na        | na        | 89.000    | 90.000    | na
CPU1_DTS         | 53.000     | degrees C  | ok    | na        | na        | na        | na        | na        | na
FAN0_Speed       | 4200.000   | RPM        | ok    | na        | 500.000   | 600.000   | na        | na        | na
PSU0_Status      | 0x0        | discrete   | 0x0180| na        | na        | na        | na        | na        | na
`

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Execute(_ context.Context, _ endpoint.Config, args ...string) (string, error) {
	f.args = args
	return f.out, f.err
}

func TestParseTemperature(t *testing.T) {
	tests := []struct {
		name   string
		output string
		label  string
		want   float64
		ok     bool
	}{
		{"listing", sensorListing, "CPU1_Temp", 45.0, true},
		{"other label", sensorListing, "CPU0_Temp", 41.0, true},
		{"single line", "CPU1_Temp | 45.000 | degrees C", "CPU1_Temp", 45.0, true},
		{"unit case", "CPU1_Temp | 61.5 | DEGREES c | ok", "CPU1_Temp", 61.5, true},
		{"negative", "CPU1_Temp | -4.000 | degrees C | ok", "CPU1_Temp", -4.0, true},
		{"zero", "CPU1_Temp | 0.000 | degrees C | ok", "CPU1_Temp", 0, true},
		{"label is case sensitive", "cpu1_temp | 45.000 | degrees C", "CPU1_Temp", 0, false},
		{"not available", "CPU1_Temp | na | degrees C | na", "CPU1_Temp", 0, false},
		{"wrong unit", "CPU1_Temp | 45.000 | RPM | ok", "CPU1_Temp", 0, false},
		{"garbled number", "CPU1_Temp | 4.5.0 | degrees C | ok", "CPU1_Temp", 0, false},
		{"missing", "FAN0_Speed | 4200.000 | RPM | ok", "CPU1_Temp", 0, false},
		{"empty", "", "CPU1_Temp", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sensor.ParseTemperature(tt.output, tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestReaderRead(t *testing.T) {
	runner := &fakeRunner{out: sensorListing}
	reader := sensor.NewReader(runner, "", nil)

	reading := reader.Read(context.Background(), endpoint.DefaultConfig())
	require.True(t, reading.Present)
	assert.InDelta(t, 45.0, reading.Celsius, 1e-9)
	assert.NoError(t, reading.Cause)
	assert.Equal(t, []string{"sensor"}, runner.args)
	assert.Equal(t, "45.0°C", reading.String())
}

func TestReaderNoMatchingLine(t *testing.T) {
	reader := sensor.NewReader(&fakeRunner{out: "FAN0_Speed | 4200.000 | RPM | ok\n"}, "CPU1_Temp", nil)

	reading := reader.Read(context.Background(), endpoint.DefaultConfig())
	assert.False(t, reading.Present)
	assert.Equal(t, errors.ErrSensorUnavailable, errors.CodeOf(reading.Cause))
	assert.Equal(t, "no reading", reading.String())
}

func TestReaderCommandFailure(t *testing.T) {
	failure := errors.New().New(errors.ErrCommandFailed)
	reader := sensor.NewReader(&fakeRunner{err: failure}, "CPU1_Temp", nil)

	reading := reader.Read(context.Background(), endpoint.DefaultConfig())
	assert.False(t, reading.Present)
	assert.Equal(t, errors.ErrCommandFailed, errors.CodeOf(reading.Cause))
}

func TestReaderCustomLabel(t *testing.T) {
	reader := sensor.NewReader(&fakeRunner{out: sensorListing}, "CPU1_DTS", nil)

	reading := reader.Read(context.Background(), endpoint.DefaultConfig())
	require.True(t, reading.Present)
	assert.InDelta(t, 53.0, reading.Celsius, 1e-9)
	assert.Equal(t, "CPU1_DTS", reader.Label())
}

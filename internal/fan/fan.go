// Package fan maps CPU temperature to a chassis fan duty through a step
// table of temperature bands.
package fan

import (
	"fmt"
	"math"
	"strings"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

// Duty is a fan speed in percent of maximum.
type Duty uint8

const MaxDuty Duty = 100

// Hex is the duty encoded as the two-digit byte the BMC expects.
func (d Duty) Hex() string {
	return fmt.Sprintf("%02x", uint8(d))
}

// Band covers temperatures t with Above < t <= UpTo.
type Band struct {
	Above float64
	UpTo  float64
	Duty  Duty
}

func (b Band) contains(t float64) bool {
	return t > b.Above && t <= b.UpTo
}

func (b Band) String() string {
	switch {
	case math.IsInf(b.Above, -1):
		return fmt.Sprintf("<=%g°C: %d%%", b.UpTo, b.Duty)
	case math.IsInf(b.UpTo, 1):
		return fmt.Sprintf(">%g°C: %d%%", b.Above, b.Duty)
	default:
		return fmt.Sprintf("%g-%g°C: %d%%", b.Above, b.UpTo, b.Duty)
	}
}

// Table is an immutable, ascending set of bands.
type Table struct {
	bands []Band
}

// DefaultBands is the stock fan curve. Readings above 78°C and up to 88°C
// fall in no band and leave the fans where they are.
func DefaultBands() []Band {
	return []Band{
		{Above: math.Inf(-1), UpTo: 39, Duty: 20},
		{Above: 39, UpTo: 49, Duty: 24},
		{Above: 49, UpTo: 58, Duty: 40},
		{Above: 58, UpTo: 68, Duty: 60},
		{Above: 68, UpTo: 78, Duty: 80},
		{Above: 88, UpTo: math.Inf(1), Duty: 100},
	}
}

// DefaultTable returns the table built from DefaultBands.
func DefaultTable() *Table {
	t, err := NewTable(DefaultBands())
	if err != nil {
		panic(err)
	}

	return t
}

// NewTable validates bands and returns a Table. Bands must be ordered, must
// not overlap, and every duty must be within 0-100.
func NewTable(bands []Band) (*Table, error) {
	errFactory := errors.New()

	if len(bands) == 0 {
		return nil, errFactory.WithData(errors.ErrInvalidBands, "no bands")
	}

	for i, b := range bands {
		if math.IsNaN(b.Above) || math.IsNaN(b.UpTo) {
			return nil, errFactory.WithData(errors.ErrInvalidBands, fmt.Sprintf("band %d has NaN bound", i))
		}
		if b.Above >= b.UpTo {
			return nil, errFactory.WithData(errors.ErrInvalidBands, fmt.Sprintf("band %d is empty: %s", i, b))
		}
		if b.Duty > MaxDuty {
			return nil, errFactory.WithData(errors.ErrInvalidBands, fmt.Sprintf("band %d duty %d exceeds %d", i, b.Duty, MaxDuty))
		}
		if i > 0 && b.Above < bands[i-1].UpTo {
			return nil, errFactory.WithData(errors.ErrInvalidBands, fmt.Sprintf("band %d overlaps band %d", i, i-1))
		}
	}

	owned := make([]Band, len(bands))
	copy(owned, bands)

	return &Table{bands: owned}, nil
}

// DutyFor returns the duty of the first band containing t. It reports
// false when t lies in no band, including NaN.
func (t *Table) DutyFor(temperature float64) (Duty, bool) {
	for _, b := range t.bands {
		if b.contains(temperature) {
			return b.Duty, true
		}
	}

	return 0, false
}

// Bands returns a copy of the table's bands.
func (t *Table) Bands() []Band {
	bands := make([]Band, len(t.bands))
	copy(bands, t.bands)

	return bands
}

// Gaps returns the temperature ranges that no band covers, excluding the
// open ends below the first and above the last band.
func (t *Table) Gaps() [][2]float64 {
	var gaps [][2]float64
	for i := 1; i < len(t.bands); i++ {
		if t.bands[i].Above > t.bands[i-1].UpTo {
			gaps = append(gaps, [2]float64{t.bands[i-1].UpTo, t.bands[i].Above})
		}
	}

	return gaps
}

func (t *Table) String() string {
	parts := make([]string, len(t.bands))
	for i, b := range t.bands {
		parts[i] = b.String()
	}

	return strings.Join(parts, ", ")
}

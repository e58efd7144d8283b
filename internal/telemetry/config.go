package telemetry

import (
	"path/filepath"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

type Config struct {
	Enabled  bool
	Textfile string // node_exporter textfile collector target; empty disables export
}

func DefaultConfig() Config {
	return Config{
		Enabled: false,
	}
}

func (c Config) Validate() error {
	if c.Textfile != "" && filepath.Ext(c.Textfile) != ".prom" {
		return errors.New().WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "telemetry.textfile",
			Value: c.Textfile,
		})
	}
	return nil
}

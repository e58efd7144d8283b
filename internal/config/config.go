package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/fan"
	"codeberg.org/mutker/ipmifanctl/internal/ipmi"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
	"codeberg.org/mutker/ipmifanctl/internal/metrics"
	"codeberg.org/mutker/ipmifanctl/internal/publisher"
	"codeberg.org/mutker/ipmifanctl/internal/sensor"
	"codeberg.org/mutker/ipmifanctl/internal/telemetry"
)

const DefaultLogLevel = "info"

type Config struct {
	Endpoint  endpoint.Config
	Interface string
	Sensor    string
	Interval  time.Duration
	LogLevel  string
	LogFile   string
	Headless  bool
	PIDFile   string
	Bands     []fan.Band
	Metrics   metrics.Config
	Telemetry telemetry.Config
	MQTT      publisher.Config

	// File is the configuration file that was read, empty if none.
	File string
}

// DefaultPIDFile is the PID file used when none is configured.
func DefaultPIDFile() string {
	return filepath.Join(os.TempDir(), "ipmifanctl.pid")
}

type bandEntry struct {
	Above *float64 `mapstructure:"above"`
	UpTo  *float64 `mapstructure:"up_to"`
	Duty  int      `mapstructure:"duty"`
}

// Load reads configuration from defaults, the config file, the environment
// and args, in increasing order of priority. args excludes the program name.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(ErrBindFlags, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile, _ := fs.GetString(flagConfig)
	if configFile == "" {
		configFile = os.Getenv(envConfigFile)
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	ep := endpoint.DefaultConfig()
	v.SetDefault(keyAddress, ep.Address)
	v.SetDefault(keyUsername, ep.Username)
	v.SetDefault(keyPassword, ep.Password)
	v.SetDefault(keyToolPath, ep.ToolPath)
	v.SetDefault(keyInterface, ipmi.DefaultInterface)
	v.SetDefault(keySensor, sensor.DefaultLabel)
	v.SetDefault(keyInterval, control.DefaultInterval.String())
	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyHeadless, false)
	v.SetDefault(keyPIDFile, DefaultPIDFile())

	m := metrics.DefaultConfig()
	v.SetDefault(keyMetricsEnabled, m.Enabled)
	v.SetDefault(keyMetricsDBPath, m.DBPath)
	v.SetDefault(keyMetricsBatchSize, m.BatchSize)
	v.SetDefault(keyMetricsBatchTimeout, m.BatchTimeout)

	tel := telemetry.DefaultConfig()
	v.SetDefault(keyTelemetryEnabled, tel.Enabled)
	v.SetDefault(keyTelemetryTextfile, tel.Textfile)

	mq := publisher.DefaultConfig()
	v.SetDefault(keyMQTTBroker, mq.Broker)
	v.SetDefault(keyMQTTUsername, mq.Username)
	v.SetDefault(keyMQTTPassword, mq.Password)
	v.SetDefault(keyMQTTClientID, mq.ClientID)
	v.SetDefault(keyMQTTTopicPrefix, mq.TopicPrefix)
	v.SetDefault(keyMQTTDiscovery, mq.Discovery)
	v.SetDefault(keyMQTTDiscoveryPrefix, mq.DiscoveryPrefix)
}

func newFlagSet() *pflag.FlagSet {
	ep := endpoint.DefaultConfig()
	m := metrics.DefaultConfig()

	fs := pflag.NewFlagSet("ipmifanctl", pflag.ContinueOnError)
	fs.String(flagConfig, "", "Path to configuration file")
	fs.String("address", ep.Address, "BMC address")
	fs.String("username", ep.Username, "BMC username")
	fs.String("password", ep.Password, "BMC password")
	fs.String("tool-path", ep.ToolPath, "Path to the ipmitool executable")
	fs.String("interface", ipmi.DefaultInterface, "ipmitool interface")
	fs.String("sensor", sensor.DefaultLabel, "Sensor label to regulate on")
	fs.String("interval", control.DefaultInterval.String(), "Time between the end of one cycle and the start of the next")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("log-file", "", "Write logs to this file")
	fs.Bool("headless", false, "Run without the terminal form")
	fs.String("pid-file", DefaultPIDFile(), "PID file guarding against a second instance")
	fs.Bool("metrics", m.Enabled, "Record cycles in the SQLite journal")
	fs.String("metrics-db", m.DBPath, "Path to the cycle journal")
	fs.Bool("telemetry", false, "Enable Prometheus collectors")
	fs.String("telemetry-textfile", "", "Export collectors to this node_exporter textfile")
	fs.String("mqtt-broker", "", "MQTT broker to publish outcomes to")

	return fs
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath("/etc")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errFactory.Wrap(ErrReadConfig, err)
		}
	}

	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	interval, err := parseInterval(v.Get(keyInterval))
	if err != nil {
		return nil, err
	}

	bands, err := decodeBands(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Endpoint: endpoint.Config{
			Address:  v.GetString(keyAddress),
			Username: v.GetString(keyUsername),
			Password: v.GetString(keyPassword),
			ToolPath: v.GetString(keyToolPath),
		},
		Interface: v.GetString(keyInterface),
		Sensor:    v.GetString(keySensor),
		Interval:  interval,
		LogLevel:  v.GetString(keyLogLevel),
		LogFile:   v.GetString(keyLogFile),
		Headless:  v.GetBool(keyHeadless),
		PIDFile:   v.GetString(keyPIDFile),
		Bands:     bands,
		Metrics: metrics.Config{
			Enabled:      v.GetBool(keyMetricsEnabled),
			DBPath:       v.GetString(keyMetricsDBPath),
			BatchSize:    v.GetInt(keyMetricsBatchSize),
			BatchTimeout: v.GetInt(keyMetricsBatchTimeout),
		},
		Telemetry: telemetry.Config{
			Enabled:  v.GetBool(keyTelemetryEnabled),
			Textfile: v.GetString(keyTelemetryTextfile),
		},
		MQTT: publisher.Config{
			Broker:          v.GetString(keyMQTTBroker),
			Username:        v.GetString(keyMQTTUsername),
			Password:        v.GetString(keyMQTTPassword),
			ClientID:        v.GetString(keyMQTTClientID),
			TopicPrefix:     v.GetString(keyMQTTTopicPrefix),
			Discovery:       v.GetBool(keyMQTTDiscovery),
			DiscoveryPrefix: v.GetString(keyMQTTDiscoveryPrefix),
			Timeout:         publisher.DefaultConfig().Timeout,
		},
	}, nil
}

// parseInterval accepts a Go duration string or a bare number of seconds.
func parseInterval(raw any) (time.Duration, error) {
	invalid := func() error {
		return errors.New().WithData(ErrInvalidInterval, fmt.Sprintf("%v", raw))
	}

	switch value := raw.(type) {
	case time.Duration:
		return value, nil
	case int:
		return time.Duration(value) * time.Second, nil
	case int64:
		return time.Duration(value) * time.Second, nil
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	case string:
		if secs, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, invalid()
		}
		return d, nil
	default:
		return 0, invalid()
	}
}

func decodeBands(v *viper.Viper) ([]fan.Band, error) {
	if !v.IsSet(keyBands) {
		return fan.DefaultBands(), nil
	}

	errFactory := errors.New()

	var entries []bandEntry
	if err := v.UnmarshalKey(keyBands, &entries); err != nil {
		return nil, errFactory.Wrap(ErrInvalidBands, err)
	}

	bands := make([]fan.Band, 0, len(entries))
	for i, entry := range entries {
		if entry.Duty < 0 || entry.Duty > int(fan.MaxDuty) {
			return nil, errFactory.WithData(ErrInvalidBands, fmt.Sprintf("band %d: duty %d out of range", i, entry.Duty))
		}

		band := fan.Band{Above: math.Inf(-1), UpTo: math.Inf(1), Duty: fan.Duty(entry.Duty)}
		if entry.Above != nil {
			band.Above = *entry.Above
		}
		if entry.UpTo != nil {
			band.UpTo = *entry.UpTo
		}
		bands = append(bands, band)
	}

	return bands, nil
}

// Validate checks the settings that cannot be corrected at runtime. An
// incomplete endpoint is allowed, it can be filled in from the operator
// surface.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if err := (control.Config{Interval: c.Interval}).Validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Interface == "" {
		return errFactory.WithData(ErrInvalidConfig, "interface must not be empty")
	}
	if c.Sensor == "" {
		return errFactory.WithData(ErrInvalidConfig, "sensor must not be empty")
	}
	if _, err := fan.NewTable(c.Bands); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}

	return c.MQTT.Validate()
}

package config

import (
	"os"
	"strings"

	"codeberg.org/velka/musedaq/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultDevice        = "sim"
	defaultSerialPort    = "/dev/ttyUSB0"
	defaultWindowSeconds = 5
	defaultPollInterval  = 10
	defaultStaleAfter    = 5
	defaultStopTimeout   = 5
	defaultReadyTimeout  = 30
	defaultListenAddr    = ":8000"
	defaultRecordingsDir = "recordings"
	defaultTelemetryDB   = "/var/lib/musedaq/telemetry.db"
)

type Config struct {
	Device         string `mapstructure:"device"`
	SerialPort     string `mapstructure:"serial_port"`
	WindowSeconds  int    `mapstructure:"window_seconds"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
	StaleAfterSec  int    `mapstructure:"stale_after_sec"`
	StopTimeoutSec int    `mapstructure:"stop_timeout_sec"`
	ReadyTimeoutSec int   `mapstructure:"ready_timeout_sec"`
	ListenAddr     string `mapstructure:"listen_addr"`
	RecordingsDir  string `mapstructure:"recordings_dir"`
	Telemetry      bool   `mapstructure:"telemetry"`
	TelemetryDB    string `mapstructure:"telemetry_db"`
	LogLevel       string `mapstructure:"log_level"`
	Debug          bool   `mapstructure:"debug"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Load reads configuration from file, environment and flags, in ascending
// order of precedence. The config file is optional; an explicit path can be
// given via MUSEDAQ_CONFIG.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.String("device", defaultDevice, "Board to open (sim or muse2)")
	flags.String("serial-port", defaultSerialPort, "Serial port of the headset dongle")
	flags.String("listen-addr", defaultListenAddr, "HTTP listen address")
	flags.String("recordings-dir", defaultRecordingsDir, "Directory for recording artifacts")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("telemetry", false, "Enable acquisition telemetry collection")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := v.BindPFlag("device", flags.Lookup("device")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("serial_port", flags.Lookup("serial-port")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("listen_addr", flags.Lookup("listen-addr")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("recordings_dir", flags.Lookup("recordings-dir")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("telemetry", flags.Lookup("telemetry")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("verbose", flags.Lookup("verbose")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if path := os.Getenv("MUSEDAQ_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("musedaq")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine either way: search-path mode
		// reports ConfigFileNotFoundError, an explicit path a PathError.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig,
				"Failed to read config file").WithData(err.Error())
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.WindowSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "window_seconds must be positive")
	}
	if c.PollIntervalMs <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "poll_interval_ms must be positive")
	}
	if c.StopTimeoutSec <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "stop_timeout_sec must be positive")
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "telemetry enabled without telemetry_db")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device", defaultDevice)
	v.SetDefault("serial_port", defaultSerialPort)
	v.SetDefault("window_seconds", defaultWindowSeconds)
	v.SetDefault("poll_interval_ms", defaultPollInterval)
	v.SetDefault("stale_after_sec", defaultStaleAfter)
	v.SetDefault("stop_timeout_sec", defaultStopTimeout)
	v.SetDefault("ready_timeout_sec", defaultReadyTimeout)
	v.SetDefault("listen_addr", defaultListenAddr)
	v.SetDefault("recordings_dir", defaultRecordingsDir)
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", defaultTelemetryDB)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}

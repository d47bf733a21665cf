// Package config loads scorestream settings from a YAML file with environment
// overrides.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/james-see/scorestream/pkg/converter"
	"github.com/james-see/scorestream/pkg/meter"
)

// Environment variables that override the file.
const (
	EnvPort          = "SCORESTREAM_PORT"
	EnvTimeSignature = "SCORESTREAM_TIMESIG"
	EnvLogLevel      = "SCORESTREAM_LOG_LEVEL"
)

// Server configures the HTTP API.
type Server struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins,flow"`
}

// Config is the full set of settings.
type Config struct {
	DefaultTimeSignature string  `yaml:"default_time_signature"`
	TicksPerQuarter      uint16  `yaml:"ticks_per_quarter"`
	Tempo                float64 `yaml:"tempo"`
	QuantizeGrid         float64 `yaml:"quantize_grid"`
	MakeNotation         bool    `yaml:"make_notation"`
	LogLevel             string  `yaml:"log_level"`
	Server               Server  `yaml:"server"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	opts := converter.DefaultOptions()
	return Config{
		DefaultTimeSignature: opts.DefaultTimeSignature,
		TicksPerQuarter:      opts.TicksPerQuarter,
		Tempo:                opts.Tempo,
		QuantizeGrid:         opts.QuantizeGrid,
		LogLevel:             "warn",
		Server: Server{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads path over the defaults, then applies environment overrides. A missing
// file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, errors.Wrap(err, "read config")
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s", EnvPort)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvTimeSignature); v != "" {
		c.DefaultTimeSignature = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the meter and numeric ranges.
func (c Config) Validate() error {
	if _, err := meter.NewTimeSignature(c.DefaultTimeSignature); err != nil {
		return errors.Wrap(err, "default_time_signature")
	}
	if c.QuantizeGrid < 0 {
		return errors.Errorf("quantize_grid must not be negative, got %v", c.QuantizeGrid)
	}
	if c.Tempo < 0 {
		return errors.Errorf("tempo must not be negative, got %v", c.Tempo)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// Converter returns the MIDI conversion options.
func (c Config) Converter() converter.Options {
	return converter.Options{
		TicksPerQuarter:      c.TicksPerQuarter,
		Tempo:                c.Tempo,
		QuantizeGrid:         c.QuantizeGrid,
		MakeNotation:         c.MakeNotation,
		DefaultTimeSignature: c.DefaultTimeSignature,
	}
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

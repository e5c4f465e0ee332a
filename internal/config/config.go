// Package config loads heatlog settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luki/heatlog/internal/logger"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/session"
)

const DefaultPath = "heatlog.yaml"

var ErrConfigInvalid = errors.New("invalid config")

type Config struct {
	Parser     ParserConfig         `yaml:"parser"`
	Session    SessionConfig        `yaml:"session"`
	Output     OutputConfig         `yaml:"output"`
	Postgres   PostgresConfig       `yaml:"postgres"`
	Chart      ChartConfig          `yaml:"chart"`
	Devices    DevicesConfig        `yaml:"devices"`
	CloudWatch CloudWatchConfig     `yaml:"cloudwatch"`
	Logging    logger.LoggingConfig `yaml:"logging"`
}

type ParserConfig struct {
	Marker  string  `yaml:"marker"`
	Exclude *string `yaml:"exclude"` // nil means default; "" disables
}

type SessionConfig struct {
	Cutoff time.Duration `yaml:"cutoff"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Name     string `yaml:"name"`
	Sink     string `yaml:"sink"` // csv or postgres
	Compress bool   `yaml:"compress"`
	Report   bool   `yaml:"report"`
	Charts   bool   `yaml:"charts"`
}

type PostgresConfig struct {
	ConnString  string `yaml:"conn_string"`
	TablePrefix string `yaml:"table_prefix"`
}

type ChartConfig struct {
	MaxLegend int     `yaml:"max_legend"`
	WidthIn   float64 `yaml:"width_in"`
	HeightIn  float64 `yaml:"height_in"`
	High      float64 `yaml:"high"`
	Crit      float64 `yaml:"crit"`
}

type DevicesConfig struct {
	Aliases map[string]string `yaml:"aliases"`
}

type CloudWatchConfig struct {
	Group       string `yaml:"group"`
	Region      string `yaml:"region"`
	Profile     string `yaml:"profile"`
	MessagePath string `yaml:"message_path"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := Config{Chart: ChartConfig{MaxLegend: 4}}
	cfg.applyDefaults()
	return &cfg
}

// Load reads path, applies defaults and validates. A missing file at
// DefaultPath is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	// Decode over the defaults so an explicit zero in the file survives.
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ExcludeMarker returns the configured exclusion marker.
func (p ParserConfig) ExcludeMarker() string {
	if p.Exclude == nil {
		return sensor.DefaultExclude
	}
	return *p.Exclude
}

func (c *Config) applyDefaults() {
	if c.Parser.Marker == "" {
		c.Parser.Marker = sensor.DefaultMarker
	}
	if c.Session.Cutoff == 0 {
		c.Session.Cutoff = session.DefaultCutoff
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Sink == "" {
		c.Output.Sink = "csv"
	}
	if c.Postgres.TablePrefix == "" {
		c.Postgres.TablePrefix = "heatmon"
	}
	if c.Chart.WidthIn == 0 {
		c.Chart.WidthIn = 10
	}
	if c.Chart.HeightIn == 0 {
		c.Chart.HeightIn = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 28
	}
}

// Validate checks values that flags may also have changed.
func (c *Config) Validate() error {
	if c.Session.Cutoff <= 0 {
		return fmt.Errorf("%w: session.cutoff must be positive, got %s", ErrConfigInvalid, c.Session.Cutoff)
	}
	switch c.Output.Sink {
	case "csv":
	case "postgres":
		if c.Postgres.ConnString == "" {
			return fmt.Errorf("%w: postgres.conn_string is required for the postgres sink", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: output.sink must be csv or postgres, got %q", ErrConfigInvalid, c.Output.Sink)
	}
	if c.Chart.MaxLegend < 0 {
		return fmt.Errorf("%w: chart.max_legend must not be negative", ErrConfigInvalid)
	}
	if c.Chart.Crit > 0 && c.Chart.High > c.Chart.Crit {
		return fmt.Errorf("%w: chart.high %.1f above chart.crit %.1f", ErrConfigInvalid, c.Chart.High, c.Chart.Crit)
	}
	return nil
}

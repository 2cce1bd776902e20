// Package config loads the settings of the iio command from a YAML file and
// the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/discover"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/uri"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvURI    = "IIO_URI"
	EnvRemote = "IIOD_REMOTE"
)

// Config holds the command settings.
type Config struct {
	// URI of the context to open; empty selects the default backend.
	URI        string        `mapstructure:"uri"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
	Scan       []string      `mapstructure:"scan"`        // backends for the scan command
	BufferSize int           `mapstructure:"buffer_size"` // samples per buffer
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		LogLevel:   "warn",
		LogFormat:  string(logging.FormatConsole),
		Scan:       append([]string(nil), discover.DefaultBackends...),
		BufferSize: 256,
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := cfg.Merge(data); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge decodes a YAML document over c. Keys absent from the document keep
// their current value; unknown keys are errors.
func (c *Config) Merge(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "parse yaml")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(dec.Decode(raw), "decode")
}

// ApplyEnv overlays the environment: EnvURI replaces the URI, and EnvRemote
// selects a network context when no URI is configured.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvURI); ok && v != "" {
		c.URI = v
		return
	}
	if host, ok := lookup(EnvRemote); ok && c.URI == "" {
		c.URI = "ip:" + host
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.URI != "" {
		if _, err := uri.Parse(c.URI); err != nil {
			return errors.Wrap(err, "config uri")
		}
	}
	if c.Timeout < 0 {
		return errors.Errorf("config timeout %s is negative", c.Timeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config log_level")
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return errors.Errorf("config log_format %q is not console or json", c.LogFormat)
	}
	if _, err := discover.ForNames(strings.Join(c.Scan, ",")); err != nil {
		return errors.Wrap(err, "config scan")
	}
	if c.BufferSize <= 0 {
		return errors.Errorf("config buffer_size %d must be positive", c.BufferSize)
	}
	return nil
}

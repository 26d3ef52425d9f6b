// Package config holds the settings of a proxy factory: logging, tracing,
// metrics and identifier naming.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvLoggingLevel    = "PROXYMANAGER_LOGGING_LEVEL"
	EnvLoggingFormat   = "PROXYMANAGER_LOGGING_FORMAT"
	EnvTracingEndpoint = "PROXYMANAGER_TRACING_ENDPOINT"
	EnvServiceName     = "PROXYMANAGER_SERVICE_NAME"
	EnvNamingStrategy  = "PROXYMANAGER_NAMING_STRATEGY"
)

// Logging formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Naming strategies.
const (
	NamingUUID   = "uuid"
	NamingULID   = "ulid"
	NamingDigest = "digest"
	NamingGOST   = "gost"
)

// DefaultServiceName is reported to the trace collector when none is configured.
const DefaultServiceName = "proxymanager"

var ErrCfgBytesEmpty = errors.New("config bytes is empty")

// validation errors
var (
	ErrUnknownLogFormat      = errors.New("unknown logging format")
	ErrUnknownNamingStrategy = errors.New("unknown naming strategy")
	ErrUnknownConfigFormat   = errors.New("unknown config file format")
)

// Config is the complete factory configuration.
type Config struct {
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing" toml:"tracing"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
	Naming  NamingConfig  `json:"naming" yaml:"naming" toml:"naming"`
}

// LoggingConfig selects the logrus level and formatter.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// TracingConfig describes the OTLP collector endpoint. An empty endpoint
// disables export.
type TracingConfig struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	ServiceName string `json:"serviceName" yaml:"serviceName" toml:"serviceName"`
	// CACerts is a base64 encoded PEM bundle. When set the exporter uses TLS.
	CACerts string `json:"caCerts" yaml:"caCerts" toml:"caCerts"`
}

// MetricsConfig enables the dispatch counters.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
}

// NamingConfig selects how generated proxy identifiers are derived.
type NamingConfig struct {
	Strategy string `json:"strategy" yaml:"strategy" toml:"strategy"`
	Prefix   string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warning", Format: FormatText},
		Tracing: TracingConfig{ServiceName: DefaultServiceName},
		Metrics: MetricsConfig{Namespace: "proxymanager"},
		Naming:  NamingConfig{Strategy: NamingUUID, Prefix: "Proxy"},
	}
}

// FromBytes parses JSON encoded configuration on top of the defaults.
func FromBytes(cfgBytes []byte) (*Config, error) {
	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(cfgBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing json config: %w", err)
	}

	return cfg, cfg.Validate()
}

// FromYAML parses YAML encoded configuration on top of the defaults.
func FromYAML(cfgBytes []byte) (*Config, error) {
	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	cfg := Default()
	if err := yaml.Unmarshal(cfgBytes, cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml config: %w", err)
	}

	return cfg, cfg.Validate()
}

// FromTOML parses TOML encoded configuration on top of the defaults.
func FromTOML(cfgBytes []byte) (*Config, error) {
	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	cfg := Default()
	if _, err := toml.Decode(string(cfgBytes), cfg); err != nil {
		return nil, fmt.Errorf("parsing toml config: %w", err)
	}

	return cfg, cfg.Validate()
}

// FromFile loads a configuration file, choosing the decoder by extension.
func FromFile(path string) (*Config, error) {
	cfgBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromBytes(cfgBytes)
	case ".yaml", ".yml":
		return FromYAML(cfgBytes)
	case ".toml":
		return FromTOML(cfgBytes)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConfigFormat, path)
	}
}

// FromEnv returns the defaults overridden by the PROXYMANAGER_* variables.
func FromEnv() (*Config, error) {
	cfg := Default()

	if v := os.Getenv(EnvLoggingLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLoggingFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvTracingEndpoint); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv(EnvServiceName); v != "" {
		cfg.Tracing.ServiceName = v
	}
	if v := os.Getenv(EnvNamingStrategy); v != "" {
		cfg.Naming.Strategy = v
	}

	return cfg, cfg.Validate()
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownLogFormat, c.Logging.Format)
	}

	switch c.Naming.Strategy {
	case NamingUUID, NamingULID, NamingDigest, NamingGOST:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownNamingStrategy, c.Naming.Strategy)
	}

	return nil
}

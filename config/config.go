package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tmmath "github.com/tendermint/lightcore/libs/math"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultLightDir  = ".lightcore"
	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for the light client.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	Light           *LightConfig           `mapstructure:"light"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Light:           DefaultLightConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Light:           TestLightConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Light.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [light] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for the light client.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// The chain whose headers are verified.
	ChainID string `mapstructure:"chain-id"`

	// Database backend: goleveldb | memdb
	// * goleveldb (github.com/syndtr/goleveldb)
	//   - pure go
	//   - stable
	// * memdb
	//   - nothing survives a restart; for tests only
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.ChainID = "lightcore_test"
	cfg.DBBackend = "memdb"
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db-backend %q (must be 'goleveldb' or 'memdb')", cfg.DBBackend)
	}
	return nil
}

// DefaultLogLevel defines a default log level as INFO.
const DefaultLogLevel = "info"

//-----------------------------------------------------------------------------
// LightConfig

// LightConfig defines the trust parameters of the verifier.
type LightConfig struct {
	// How long a header stays usable after it was produced. Should be
	// significantly less than the unbonding period.
	TrustingPeriod time.Duration `mapstructure:"trusting-period"`

	// Fraction of the trusted validator set which must sign a new header,
	// written as "n/d". Must be within [1/3, 1].
	TrustLevel string `mapstructure:"trust-level"`

	// How far a new header's time may be ahead of the local clock.
	MaxClockDrift time.Duration `mapstructure:"max-clock-drift"`
}

// DefaultLightConfig returns a default configuration for the verifier.
func DefaultLightConfig() *LightConfig {
	return &LightConfig{
		TrustingPeriod: 168 * time.Hour,
		TrustLevel:     "2/3",
		MaxClockDrift:  10 * time.Second,
	}
}

// TestLightConfig returns a verifier configuration for testing.
func TestLightConfig() *LightConfig {
	cfg := DefaultLightConfig()
	cfg.TrustingPeriod = time.Hour
	return cfg
}

// ParseTrustLevel returns TrustLevel as a fraction.
func (cfg *LightConfig) ParseTrustLevel() (tmmath.Fraction, error) {
	return tmmath.ParseFraction(cfg.TrustLevel)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *LightConfig) ValidateBasic() error {
	if cfg.TrustingPeriod <= 0 {
		return errors.New("trusting-period must be positive")
	}
	if cfg.MaxClockDrift < 0 {
		return errors.New("max-clock-drift can't be negative")
	}
	lvl, err := cfg.ParseTrustLevel()
	if err != nil {
		return fmt.Errorf("trust-level: %w", err)
	}
	if !lvl.Between(tmmath.Fraction{Numerator: 1, Denominator: 3}, tmmath.Fraction{Numerator: 1, Denominator: 1}) {
		return fmt.Errorf("trust-level must be within [1/3, 1], given %v", lvl)
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "lightcore",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus-listen-addr is required when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

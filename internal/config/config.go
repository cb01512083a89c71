// Package config loads the arbiter YAML configuration. Values may reference
// environment variables as ${NAME}; command-line flags override the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/logging"
	otelobs "github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/otel"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/receipt"
)

// Ledger drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	OTel    OTelConfig    `yaml:"otel"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Receipt ReceiptConfig `yaml:"receipt"`
	Gate    GateConfig    `yaml:"gate"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ReceiptConfig struct {
	Path string `yaml:"path"`
	Mode string `yaml:"mode"`
}

// GateConfig selects the gate policy. PolicyPath, when set, wins over Preset.
type GateConfig struct {
	Preset     string `yaml:"preset"`
	PolicyPath string `yaml:"policy_path"`
}

// Default is the configuration used when no file is given.
func Default() Config {
	lc := logging.DefaultConfig()
	oc := otelobs.DefaultConfig()
	return Config{
		Log: LogConfig{Format: lc.Format, Level: lc.Level, Output: lc.Output},
		OTel: OTelConfig{
			Enabled:     oc.Enabled,
			Protocol:    oc.Protocol,
			ServiceName: oc.ServiceName,
			SampleRatio: oc.SampleRatio,
		},
		Ledger:  LedgerConfig{Driver: DriverMemory},
		Receipt: ReceiptConfig{Mode: string(receipt.ModeOverwrite)},
		Gate:    GateConfig{Preset: "default"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse expands ${ENV} references and decodes data over Default.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := c.Logging().Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Tracing().Validate(); err != nil {
		return err
	}

	switch c.Ledger.Driver {
	case "", DriverMemory:
	case DriverSQLite:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required when ledger.driver=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("ledger.driver must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Ledger.Driver)
	}

	if _, err := receipt.ParseMode(c.Receipt.Mode); err != nil {
		return fmt.Errorf("receipt: %w", err)
	}
	if c.Gate.Preset == "" && c.Gate.PolicyPath == "" {
		return fmt.Errorf("gate.preset or gate.policy_path is required")
	}
	return nil
}

// Logging converts the log section.
func (c Config) Logging() logging.Config {
	return logging.Config{Format: c.Log.Format, Level: c.Log.Level, Output: c.Log.Output}
}

// Tracing converts the otel section.
func (c Config) Tracing() otelobs.Config {
	return otelobs.Config{
		Enabled:     c.OTel.Enabled,
		Endpoint:    c.OTel.Endpoint,
		Protocol:    c.OTel.Protocol,
		Insecure:    c.OTel.Insecure,
		ServiceName: c.OTel.ServiceName,
		SampleRatio: c.OTel.SampleRatio,
	}
}

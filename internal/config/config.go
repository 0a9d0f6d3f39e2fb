// Package config loads horserace settings from an HCL file, then applies
// HORSERACE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "horserace.hcl"

// Config is the complete configuration. After LoadConfig every block is
// non-nil.
type Config struct {
	Session  *SessionConfig  `hcl:"session,block" validate:"required"`
	Logging  *LoggingConfig  `hcl:"logging,block" validate:"required"`
	Spectate *SpectateConfig `hcl:"spectate,block" validate:"required"`
	History  *HistoryConfig  `hcl:"history,block" validate:"required"`
}

// SessionConfig controls the game loop
type SessionConfig struct {
	FrameIntervalMS int    `hcl:"frame_interval_ms,optional" validate:"min=1,max=1000"`
	AutoAdvance     *bool  `hcl:"auto_advance,optional"`
	Seed            *int64 `hcl:"seed,optional"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `hcl:"level,optional" validate:"loglevel"`
	File  string `hcl:"file,optional"`
}

// SpectateConfig controls the read-only spectator server
type SpectateConfig struct {
	Address string `hcl:"address,optional" validate:"required"`
	Port    int    `hcl:"port,optional" validate:"min=1,max=65535"`
}

// HistoryConfig controls where completed tournaments are written. An empty
// directory disables history.
type HistoryConfig struct {
	Dir string `hcl:"dir,optional"`
}

type envOverrides struct {
	FrameIntervalMS *int    `env:"HORSERACE_FRAME_INTERVAL_MS"`
	AutoAdvance     *bool   `env:"HORSERACE_AUTO_ADVANCE"`
	Seed            *int64  `env:"HORSERACE_SEED"`
	LogLevel        *string `env:"HORSERACE_LOG_LEVEL"`
	LogFile         *string `env:"HORSERACE_LOG_FILE"`
	SpectateAddress *string `env:"HORSERACE_SPECTATE_ADDRESS"`
	SpectatePort    *int    `env:"HORSERACE_SPECTATE_PORT"`
	HistoryDir      *string `env:"HORSERACE_HISTORY_DIR"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads filename, fills in defaults and applies environment
// overrides from the process environment. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	return load(filename, env.ToMap(os.Environ()))
}

func load(filename string, environ map[string]string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}
		diags = gohcl.DecodeBody(file.Body, nil, cfg)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Session == nil {
		c.Session = &SessionConfig{}
	}
	if c.Session.FrameIntervalMS == 0 {
		c.Session.FrameIntervalMS = 16
	}
	if c.Session.AutoAdvance == nil {
		enabled := true
		c.Session.AutoAdvance = &enabled
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Spectate == nil {
		c.Spectate = &SpectateConfig{}
	}
	if c.Spectate.Address == "" {
		c.Spectate.Address = "localhost"
	}
	if c.Spectate.Port == 0 {
		c.Spectate.Port = 8080
	}

	if c.History == nil {
		c.History = &HistoryConfig{}
	}
}

func (c *Config) applyEnv(environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.FrameIntervalMS != nil {
		c.Session.FrameIntervalMS = *o.FrameIntervalMS
	}
	if o.AutoAdvance != nil {
		c.Session.AutoAdvance = o.AutoAdvance
	}
	if o.Seed != nil {
		c.Session.Seed = o.Seed
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		c.Logging.File = *o.LogFile
	}
	if o.SpectateAddress != nil {
		c.Spectate.Address = *o.SpectateAddress
	}
	if o.SpectatePort != nil {
		c.Spectate.Port = *o.SpectatePort
	}
	if o.HistoryDir != nil {
		c.History.Dir = *o.HistoryDir
	}
	return nil
}

// Validate checks field ranges and the log level
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return fmt.Errorf("register loglevel validation: %w", err)
	}

	if err := v.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "loglevel":
			messages = append(messages, fmt.Sprintf("%s: invalid log level %q", fe.Namespace(), fe.Value()))
		case "min", "max":
			messages = append(messages, fmt.Sprintf("%s: %v is out of range (%s %s)", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

// FrameInterval is the session's frame period
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Session.FrameIntervalMS) * time.Millisecond
}

// AutoAdvance reports whether rounds chain automatically
func (c *Config) AutoAdvance() bool {
	return c.Session.AutoAdvance == nil || *c.Session.AutoAdvance
}

// SpectateAddress returns host:port for the spectator server
func (c *Config) SpectateAddress() string {
	return fmt.Sprintf("%s:%d", c.Spectate.Address, c.Spectate.Port)
}

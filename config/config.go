package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the process-wide configuration handed to the dispatcher and the
// stdio transport at construction. Values come from the environment first and
// may then be overridden by CLI flags.
type Config struct {
	// BasePath is the sandbox root; every filename resolves strictly inside it.
	BasePath string `env:"SPREADSHEET_BASE_PATH,default=spreadsheets"`

	LogLevel  string `env:"SPREADSHEET_LOG_LEVEL,default=info"`
	LogFormat string `env:"SPREADSHEET_LOG_FORMAT,default=json"`

	// ReadOnly hides and rejects every mutating tool.
	ReadOnly bool `env:"SPREADSHEET_READ_ONLY,default=false"`

	// OperationTimeout bounds a single tool call; zero means no deadline.
	OperationTimeout time.Duration `env:"SPREADSHEET_OPERATION_TIMEOUT,default=0s"`

	// MaxLineBytes caps a single JSON-RPC line read from stdin.
	MaxLineBytes int `env:"SPREADSHEET_MAX_LINE_BYTES,default=16777216"`
}

// Default returns a Config populated from the package defaults without
// consulting the environment.
func Default() Config {
	return Config{
		BasePath:         DefaultBasePath,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		OperationTimeout: DefaultOperationTimeout,
		MaxLineBytes:     DefaultMaxLineBytes,
	}
}

// FromEnv decodes the SPREADSHEET_* environment variables on top of the
// defaults.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decode env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BasePath) == "" {
		return errors.New("config: base path is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("config: unsupported log format %q (use json or console)", c.LogFormat)
	}
	if c.OperationTimeout < 0 {
		return errors.New("config: operation timeout must be >= 0")
	}
	if c.MaxLineBytes <= 0 {
		return errors.New("config: max line bytes must be > 0")
	}
	return nil
}

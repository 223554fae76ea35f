// Package config loads migration settings from environment variables with
// defaults, and validates them on startup. Command-line flags are applied on
// top by the CLI.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Migrate MigrateConfig
	Export  ExportConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// MigrateConfig holds the input side of a run.
type MigrateConfig struct {
	// Input is the path of the SQL dump
	Input string `env:"MIGRATE_INPUT" envAlt:"SDV_DUMP"`

	// Encoding is the dump's character set (default: latin1)
	Encoding string `env:"MIGRATE_ENCODING" default:"latin1"`

	// Mappings is an optional YAML overlay for fee types and column lists
	Mappings string `env:"MIGRATE_MAPPINGS"`

	// DateFallback replaces unparseable dates, in DD-MM-YYYY (default: 01-01-2000)
	DateFallback string `env:"MIGRATE_DATE_FALLBACK" default:"01-01-2000"`
}

// ExportConfig holds workbook output settings.
type ExportConfig struct {
	// OutputDir receives reports and workbooks (default: output)
	OutputDir string `env:"MIGRATE_OUTPUT" default:"output"`

	// Template is an optional .xlsx whose sheets and headers are reused
	Template string `env:"MIGRATE_TEMPLATE"`

	// Workers bounds concurrent session workbooks (default: 4)
	Workers int `env:"EXPORT_WORKERS" default:"4"`

	// Consolidated also writes the all-sessions workbook (default: true)
	Consolidated bool `env:"EXPORT_CONSOLIDATED" default:"true"`
}

// ServerConfig holds review server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a single request, exports included (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// ExportWait is how long an export request queues behind a running one (default: 30s)
	ExportWait time.Duration `env:"SERVER_EXPORT_WAIT" default:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

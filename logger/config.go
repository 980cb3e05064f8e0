package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level zapcore.Level `toml:"level"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		Level: zapcore.InfoLevel,
	}
}

// New creates a new logger writing to w with the configuration from c.
func (c Config) New(w io.Writer) *zap.Logger {
	return New(w, c.Level)
}

// Package logging configures structured logging for services built on this
// library and scrubs credentials out of anything destined for a log line.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Debug switches to the human-readable development config at debug level.
	Debug bool
	// Level overrides the default level ("debug", "info", "warn", "error").
	Level string
	// ServiceName is attached to every entry when set.
	ServiceName string
	// Environment is attached to every entry when set.
	Environment string
}

// New builds a zap logger. Production services get JSON output at info level;
// Debug selects the console encoder at debug level.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	var fields []zap.Field
	if opts.ServiceName != "" {
		fields = append(fields, zap.String("service", opts.ServiceName))
	}
	if opts.Environment != "" {
		fields = append(fields, zap.String("environment", opts.Environment))
	}
	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger, nil
}

// Must is New but panics on failure. Intended for composition roots where a
// broken logging config should stop the process.
func Must(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err != nil {
		panic(err)
	}
	return logger
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/pgurl"
)

const (
	// engineRecycleInterval bounds connection age so long-lived pools shed
	// connections before the server or an intermediary closes them.
	engineRecycleInterval = time.Hour

	// engineHealthCheckPeriod is how often idle pooled connections are
	// liveness-checked in the background.
	engineHealthCheckPeriod = time.Minute
)

// Engine is a pooled connection handle bound to one canonical URL. Engines
// are owned by the Manager's cache; callers borrow them for the duration of
// a session or probe.
type Engine struct {
	*pgxpool.Pool
	redactedURL string
}

// RedactedURL returns the engine's connection URL with credentials removed,
// safe for logs.
func (e *Engine) RedactedURL() string {
	return e.redactedURL
}

// newEngine builds a pooled engine from the settings' async URL. The pool is
// constructed lazily: no connection is dialed until first acquire.
func newEngine(ctx context.Context, asyncURL config.Secret, settings *config.ServiceSettings) (*Engine, error) {
	dsn := pgurl.StripDriver(asyncURL.Value())

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = settings.DBPoolSize + settings.DBMaxOverflow
	if poolConfig.MaxConns < 1 {
		poolConfig.MaxConns = 1
	}
	poolConfig.MaxConnLifetime = engineRecycleInterval
	poolConfig.HealthCheckPeriod = engineHealthCheckPeriod
	if settings.DBPoolTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = settings.DBPoolTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &Engine{Pool: pool, redactedURL: pgurl.Redact(dsn)}, nil
}

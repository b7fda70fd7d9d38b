package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/logging"
	"github.com/nexor-io/nexor-go/pkg/retry"
)

// ProbeAttempts is how many times the connectivity probe tries before giving
// up. Between attempts the scope's cache is disposed so a bad cached engine
// (stale credentials, dead pool) cannot be the cause of every failure.
const ProbeAttempts = 3

// Probe checks that the cached engine for the settings can open a
// connection. Each attempt obtains the engine, acquires a connection and
// immediately releases it; on failure with attempts remaining the scope's
// engines are disposed and the next attempt rebuilds from scratch. The last
// error is returned after the attempts are exhausted.
func (m *Manager) Probe(ctx context.Context, settings *config.ServiceSettings) error {
	if _, ok := ScopeFrom(ctx); !ok {
		return apperrors.ErrNoActiveScope
	}
	if _, err := settings.AsyncPostgresURL(); err != nil {
		// Configuration failures are fatal, not transient.
		return err
	}

	cfg := retry.Config{
		MaxAttempts: ProbeAttempts,
		OnRetry: func(ctx context.Context) error {
			m.Dispose(ctx)
			return nil
		},
	}

	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		engine, err := m.GetEngine(ctx, settings)
		if err != nil {
			return err
		}
		conn, err := engine.Acquire(ctx)
		if err != nil {
			return err
		}
		conn.Release()
		return nil
	})
}

// TestConnection probes connectivity and normalizes any failure. On failure
// the scope's cache is disposed once more and the returned error wraps both
// apperrors.ErrDatabaseUnavailable and the last underlying cause. Health
// endpoints call this to decide liveness.
func (m *Manager) TestConnection(ctx context.Context, settings *config.ServiceSettings) error {
	if err := m.Probe(ctx, settings); err != nil {
		m.Dispose(ctx)
		m.logger.Error("database connection test failed",
			zap.String("error", logging.SanitizeError(err)),
		)
		return fmt.Errorf("%w: %w", apperrors.ErrDatabaseUnavailable, err)
	}
	m.logger.Info("database connection test successful")
	return nil
}

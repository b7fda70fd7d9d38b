package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/config"
)

// Session is a short-lived unit of work: one connection borrowed from a
// cached engine with an open transaction. A session is created per logical
// operation and must be closed at the end of that operation regardless of
// outcome. Closing without a prior Commit rolls the transaction back, so a
// session that completes without committing never persists work.
type Session struct {
	conn      *pgxpool.Conn
	tx        pgx.Tx
	committed bool
	closed    bool
}

// SessionFactory builds sessions bound to one cached engine. Factories are
// cached alongside their engine and hold no state beyond the engine
// reference.
type SessionFactory struct {
	engine *Engine
}

// Open borrows a connection from the engine's pool and begins a transaction.
func (f *SessionFactory) Open(ctx context.Context) (*Session, error) {
	conn, err := f.engine.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{conn: conn, tx: tx}, nil
}

// Exec runs a statement inside the session's transaction.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.closed {
		return pgconn.CommandTag{}, apperrors.ErrSessionClosed
	}
	return s.tx.Exec(ctx, sql, args...)
}

// Query runs a query inside the session's transaction.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}
	return s.tx.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query inside the session's transaction.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.tx.QueryRow(ctx, sql, args...)
}

// Commit commits the session's transaction.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return apperrors.ErrSessionClosed
	}
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	s.committed = true
	return nil
}

// Rollback discards the session's transaction. Calling it after Commit or
// Close is a no-op.
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed || s.committed {
		return nil
	}
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back session: %w", err)
	}
	return nil
}

// Close ends the session on every exit path: any open transaction is rolled
// back and the connection returns to the pool. Idempotent.
func (s *Session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	if !s.committed {
		_ = s.tx.Rollback(ctx)
	}
	s.conn.Release()
}

// OpenSession resolves the session factory cached for the settings' engine
// and opens one session. The caller owns the session and must Close it;
// committing is the caller's choice.
func (m *Manager) OpenSession(ctx context.Context, settings *config.ServiceSettings) (*Session, error) {
	e, err := m.getEntry(ctx, settings)
	if err != nil {
		return nil, err
	}
	return e.sessionFactory().Open(ctx)
}

// WithSession runs fn inside a session scope. On an fn error the session is
// rolled back and the error propagates; on success the session is only
// closed - committing inside fn is the caller's decision. The session is
// closed on every path.
func (m *Manager) WithSession(ctx context.Context, settings *config.ServiceSettings, fn func(ctx context.Context, s *Session) error) error {
	session, err := m.OpenSession(ctx, settings)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	if err := fn(ctx, session); err != nil {
		if rbErr := session.Rollback(ctx); rbErr != nil {
			m.logger.Warn("session rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return nil
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/pgurl"
)

// DefaultTenantSetting is the server-side runtime setting tenant identity is
// written to when no override is configured.
const DefaultTenantSetting = "app.tenant_id"

type connectOptions struct {
	tenantSetting string
}

// ConnectOption adjusts raw connection establishment.
type ConnectOption func(*connectOptions)

// WithTenantSetting overrides the server-side setting name the tenant id is
// injected under. The name must match what the row-level-security policies
// on the target database read.
func WithTenantSetting(name string) ConnectOption {
	return func(o *connectOptions) {
		if name != "" {
			o.tenantSetting = name
		}
	}
}

// Connect opens a single unpooled driver connection, bypassing the engine
// cache. Any driver qualifier is stripped from the URL first. When tenantID
// is non-nil it is injected as a server-side session parameter atomically
// with connection establishment, so no query can run on the connection
// before the tenant setting applies.
func Connect(ctx context.Context, url config.Secret, tenantID *uuid.UUID, opts ...ConnectOption) (*pgx.Conn, error) {
	options := connectOptions{tenantSetting: DefaultTenantSetting}
	for _, opt := range opts {
		opt(&options)
	}

	dsn := pgurl.StripDriver(pgurl.Normalize(url.Value()))
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	if tenantID != nil {
		connConfig.RuntimeParams[options.tenantSetting] = tenantID.String()
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

// WithConnection runs fn with a raw connection and guarantees the connection
// is closed on every exit path.
func WithConnection(ctx context.Context, url config.Secret, tenantID *uuid.UUID, fn func(ctx context.Context, conn *pgx.Conn) error, opts ...ConnectOption) error {
	conn, err := Connect(ctx, url, tenantID, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	return fn(ctx, conn)
}

// Package tenancy binds tenant and user identity to database sessions.
//
// The binding uses server-side session settings (by default app.tenant_id
// and app.user_id) applied transaction-locally, which row-level-security
// policies on the target database read to filter rows. The setting names are
// configuration, not constants, so the package can sit in front of different
// access-control schemas.
package tenancy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/database"
)

// VerifyFunc confirms that the access context bound to the session is valid:
// the tenant and user exist and the user may act within the tenant. It runs
// after the session settings are applied, so tenant-filtered queries already
// see the caller's scope.
type VerifyFunc func(ctx context.Context, s *database.Session, access database.AccessContext) error

// Scoper applies tenant and user context to sessions. It implements
// database.AccessScoper.
type Scoper struct {
	tenantSetting string
	userSetting   string
	verify        VerifyFunc
	logger        *zap.Logger
}

// NewScoper builds a Scoper using the setting names from the service
// settings. verify may be nil, in which case verification requests fall back
// to checking that the tenant binding round-trips on the session.
func NewScoper(settings *config.ServiceSettings, verify VerifyFunc, logger *zap.Logger) *Scoper {
	if logger == nil {
		logger = zap.NewNop()
	}
	tenantSetting := settings.TenantSettingName
	if tenantSetting == "" {
		tenantSetting = database.DefaultTenantSetting
	}
	userSetting := settings.UserSettingName
	if userSetting == "" {
		userSetting = "app.user_id"
	}
	return &Scoper{
		tenantSetting: tenantSetting,
		userSetting:   userSetting,
		verify:        verify,
		logger:        logger,
	}
}

// ScopedSession acquires a session from the factory and binds the access
// context to it. The settings are applied transaction-locally, so they end
// with the session's transaction and can never leak to the next borrower of
// the pooled connection. When verify is true the access context is checked
// before the session is handed back; a failed check closes the session and
// returns an error wrapping apperrors.ErrTenantVerification.
func (sc *Scoper) ScopedSession(
	ctx context.Context,
	factory database.SessionFactoryFunc,
	access database.AccessContext,
	verify bool,
) (*database.Session, error) {
	session, err := factory(ctx)
	if err != nil {
		return nil, err
	}

	_, err = session.Exec(ctx,
		"SELECT set_config($1, $2, true), set_config($3, $4, true)",
		sc.tenantSetting, access.TenantID.String(),
		sc.userSetting, access.UserID.String(),
	)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("failed to bind access context: %w", err)
	}

	if verify {
		verifier := sc.verify
		if verifier == nil {
			verifier = sc.roundTripVerifier
		}
		if err := verifier(ctx, session, access); err != nil {
			session.Close(ctx)
			sc.logger.Warn("tenant verification failed",
				zap.String("tenant_id", access.TenantID.String()),
				zap.String("user_id", access.UserID.String()),
			)
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTenantVerification, err)
		}
	}

	return session, nil
}

// roundTripVerifier is the default verification: the tenant setting must
// read back exactly as it was bound.
func (sc *Scoper) roundTripVerifier(ctx context.Context, s *database.Session, access database.AccessContext) error {
	var bound string
	row := s.QueryRow(ctx, "SELECT current_setting($1, true)", sc.tenantSetting)
	if err := row.Scan(&bound); err != nil {
		return fmt.Errorf("failed to read tenant setting: %w", err)
	}
	if bound != access.TenantID.String() {
		return fmt.Errorf("tenant setting %q does not match access context", sc.tenantSetting)
	}
	return nil
}

// ExistsVerifier returns a VerifyFunc that checks the tenant row exists in
// the given table. Column and table names come from trusted configuration,
// not request input.
func ExistsVerifier(table, idColumn string) VerifyFunc {
	return func(ctx context.Context, s *database.Session, access database.AccessContext) error {
		query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", table, idColumn)
		var exists bool
		if err := s.QueryRow(ctx, query, access.TenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to verify tenant: %w", err)
		}
		if !exists {
			return fmt.Errorf("tenant %s not found in %s", access.TenantID, table)
		}
		return nil
	}
}

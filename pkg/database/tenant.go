package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/nexor-io/nexor-go/pkg/config"
)

// AccessContext carries the tenant and user identity a session is scoped to.
type AccessContext struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// SessionFactoryFunc produces a fresh session. Handed to the access-control
// collaborator so it controls session acquisition without knowing about the
// engine cache.
type SessionFactoryFunc func(ctx context.Context) (*Session, error)

// AccessScoper is the access-control collaborator contract. ScopedSession
// acquires a session through the supplied factory and binds the access
// context to it (for example via server-side session variables read by
// row-level-security policies). When verify is true the scoper must confirm
// the tenant and user actually exist and have access before returning the
// session; the verification algorithm is owned by the scoper, not this
// package. The returned session is owned by the caller.
type AccessScoper interface {
	ScopedSession(ctx context.Context, factory SessionFactoryFunc, access AccessContext, verify bool) (*Session, error)
}

// WithScopedSession runs fn inside a tenant-scoped session obtained from the
// scoper. The transaction commits exactly when fn returns nil; on any error -
// from the scoper (verification included) or from fn - no commit occurs, the
// error propagates unchanged, and the session is rolled back via Close.
// Callers may rely on the commit-iff-no-error postcondition for
// transactional correctness.
func (m *Manager) WithScopedSession(
	ctx context.Context,
	settings *config.ServiceSettings,
	scoper AccessScoper,
	access AccessContext,
	verify bool,
	fn func(ctx context.Context, s *Session) error,
) error {
	factory := func(ctx context.Context) (*Session, error) {
		return m.OpenSession(ctx, settings)
	}

	session, err := scoper.ScopedSession(ctx, factory, access, verify)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	if err := fn(ctx, session); err != nil {
		return err
	}
	return session.Commit(ctx)
}

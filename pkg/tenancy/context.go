package tenancy

import (
	"context"

	"github.com/nexor-io/nexor-go/pkg/database"
)

type sessionContextKey struct{}

// SetSession stores a tenant-scoped session in the context.
func SetSession(ctx context.Context, s *database.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFrom retrieves the tenant-scoped session from the context. Returns
// nil and false when no session is present.
func SessionFrom(ctx context.Context) (*database.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*database.Session)
	return s, ok
}

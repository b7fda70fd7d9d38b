package tenancy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/config"
	"github.com/nexor-io/nexor-go/pkg/database"
)

// Middleware returns HTTP middleware that opens a tenant-scoped session for
// each request. The tenant and user identity come from the request's bearer
// token; the session is stored in the request context (SessionFrom) and
// closed after the handler returns. Handlers commit explicitly when their
// work should persist.
//
// Request contexts must already carry an engine scope; set one for the whole
// server via http.Server.BaseContext with database.WithScope.
func Middleware(
	mgr *database.Manager,
	settings *config.ServiceSettings,
	scoper database.AccessScoper,
	secret []byte,
	logger *zap.Logger,
) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
				return
			}

			claims, err := ParseClaims(token, secret)
			if err != nil {
				logger.Warn("rejected request with invalid token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
				return
			}

			access, err := claims.AccessContext()
			if err != nil {
				logger.Warn("rejected token without tenant context", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid_claims", "Token is missing tenant context")
				return
			}

			factory := func(ctx context.Context) (*database.Session, error) {
				return mgr.OpenSession(ctx, settings)
			}

			session, err := scoper.ScopedSession(r.Context(), factory, access, true)
			if err != nil {
				logger.Error("failed to open tenant-scoped session",
					zap.String("tenant_id", access.TenantID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer session.Close(r.Context())

			ctx := SetSession(r.Context(), session)
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

package tenancy

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nexor-io/nexor-go/pkg/database"
)

// Claims are the JWT claims this library understands: standard registered
// claims plus the tenant and user identity the token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// ParseClaims validates an HMAC-signed token and extracts its claims.
func ParseClaims(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AccessContext converts the claims' tenant and user identifiers into an
// access context. Both must be present and valid UUIDs.
func (c *Claims) AccessContext() (database.AccessContext, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return database.AccessContext{}, fmt.Errorf("invalid tenant_id claim: %w", err)
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return database.AccessContext{}, fmt.Errorf("invalid user_id claim: %w", err)
	}
	return database.AccessContext{TenantID: tenantID, UserID: userID}, nil
}

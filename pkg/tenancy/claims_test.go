package tenancy

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret")

func signedToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func TestParseClaims_ValidToken(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	tokenString := signedToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: tenantID.String(),
		UserID:   userID.String(),
	})

	claims, err := ParseClaims(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, userID.String(), claims.UserID)

	access, err := claims.AccessContext()
	require.NoError(t, err)
	assert.Equal(t, tenantID, access.TenantID)
	assert.Equal(t, userID, access.UserID)
}

func TestParseClaims_WrongSecret(t *testing.T) {
	tokenString := signedToken(t, &Claims{
		TenantID: uuid.NewString(),
		UserID:   uuid.NewString(),
	})

	_, err := ParseClaims(tokenString, []byte("other-secret"))
	assert.Error(t, err)
}

func TestParseClaims_ExpiredToken(t *testing.T) {
	tokenString := signedToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		TenantID: uuid.NewString(),
		UserID:   uuid.NewString(),
	})

	_, err := ParseClaims(tokenString, testSecret)
	assert.Error(t, err)
}

func TestParseClaims_Garbage(t *testing.T) {
	_, err := ParseClaims("not.a.token", testSecret)
	assert.Error(t, err)
}

func TestAccessContext_MissingTenant(t *testing.T) {
	claims := &Claims{UserID: uuid.NewString()}
	_, err := claims.AccessContext()
	assert.ErrorContains(t, err, "tenant_id")
}

func TestAccessContext_InvalidUser(t *testing.T) {
	claims := &Claims{TenantID: uuid.NewString(), UserID: "not-a-uuid"}
	_, err := claims.AccessContext()
	assert.ErrorContains(t, err, "user_id")
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syscatalog/pkg/catalogerrors"
)

const localSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func localClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"aud":            "catalog-client-id",
		"exp":            exp.Unix(),
		"sub":            "subject-456",
		"email":          "dev@example.com",
		"email_verified": true,
		"name":           "Dev User",
	}
}

func newLocalVerifier(allowed []string) (*LocalVerifier, *recordingAuditLog) {
	trail := &recordingAuditLog{}
	v := NewLocalVerifier(localSigningKey, "catalog-client-id", allowed, trail,
		WithLocalClock(func() time.Time { return verifierNow }))
	return v, trail
}

func TestLocalVerifySuccess(t *testing.T) {
	v, trail := newLocalVerifier(nil)
	token := signToken(t, localSigningKey, localClaims(verifierNow.Add(time.Hour)))

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", identity.Email)
	assert.Equal(t, "Dev User", identity.Name)
	assert.Equal(t, "subject-456", identity.Subject)
	assert.Equal(t, "catalog-client-id", identity.Audience)
	assert.Equal(t, authEvent{Email: "dev@example.com", Action: "login", Status: "success"}, trail.last(t))
}

func TestLocalVerifyRejections(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		mutate  func(jwt.MapClaims)
		allowed []string
	}{
		{
			name:   "expired token",
			key:    localSigningKey,
			mutate: func(c jwt.MapClaims) { c["exp"] = verifierNow.Add(-time.Minute).Unix() },
		},
		{
			name:   "wrong audience",
			key:    localSigningKey,
			mutate: func(c jwt.MapClaims) { c["aud"] = "someone-else" },
		},
		{
			name:   "wrong signing key",
			key:    "attacker-key",
			mutate: func(jwt.MapClaims) {},
		},
		{
			name:   "missing expiry",
			key:    localSigningKey,
			mutate: func(c jwt.MapClaims) { delete(c, "exp") },
		},
		{
			name:   "unverified email",
			key:    localSigningKey,
			mutate: func(c jwt.MapClaims) { c["email_verified"] = false },
		},
		{
			name:    "email not on allow-list",
			key:     localSigningKey,
			mutate:  func(jwt.MapClaims) {},
			allowed: []string{"someone-else@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := localClaims(verifierNow.Add(time.Hour))
			tt.mutate(claims)
			v, trail := newLocalVerifier(tt.allowed)

			_, err := v.Verify(context.Background(), signToken(t, tt.key, claims))
			require.Error(t, err)
			assert.True(t, catalogerrors.Is(err, catalogerrors.CodeAuthenticationError))
			assert.Equal(t, "failed", trail.last(t).Status)
		})
	}
}

func TestLocalVerifyEmptyToken(t *testing.T) {
	v, trail := newLocalVerifier(nil)

	_, err := v.Verify(context.Background(), "")
	require.Error(t, err)
	assert.True(t, catalogerrors.Is(err, catalogerrors.CodeAuthenticationError))
	assert.Equal(t, "failed", trail.last(t).Status)
}

func TestLocalVerifyRejectsUnsignedToken(t *testing.T) {
	v, _ := newLocalVerifier(nil)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, localClaims(verifierNow.Add(time.Hour))).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, verr := v.Verify(context.Background(), unsigned)
	require.Error(t, verr)
	assert.True(t, catalogerrors.Is(verr, catalogerrors.CodeAuthenticationError))
}

package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"syscatalog/pkg/catalogerrors"
)

// LocalVerifier validates HS256-signed tokens with a shared key. It exists
// for development and test environments that have no reachable token-info
// endpoint; claim checks mirror TokenInfoVerifier.
type LocalVerifier struct {
	key      []byte
	clientID string
	allowed  map[string]struct{}
	audit    AuditLog
	clock    func() time.Time
}

type LocalOption func(*LocalVerifier)

// WithLocalClock sets the expiry comparison time source.
func WithLocalClock(clock func() time.Time) LocalOption {
	return func(v *LocalVerifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

func NewLocalVerifier(signingKey, clientID string, allowedUsers []string, auditLog AuditLog, opts ...LocalOption) *LocalVerifier {
	v := &LocalVerifier{
		key:      []byte(signingKey),
		clientID: clientID,
		allowed:  allowSet(allowedUsers),
		audit:    auditLog,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *LocalVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	identity, err := v.verify(idToken)
	if err != nil {
		v.audit.Auth(ctx, identity.Email, "login", "failed")
		return Identity{}, err
	}
	v.audit.Auth(ctx, identity.Email, "login", "success")
	return identity, nil
}

func (v *LocalVerifier) verify(idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, authErr("missing or invalid ID token")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(*jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock),
	)

	identity := Identity{
		Email:    stringClaim(claims, "email"),
		Name:     stringClaim(claims, "name"),
		Picture:  stringClaim(claims, "picture"),
		Audience: v.clientID,
	}
	if sub, serr := claims.GetSubject(); serr == nil {
		identity.Subject = sub
	}
	if exp, eerr := claims.GetExpirationTime(); eerr == nil && exp != nil {
		identity.Expiry = exp.Time
	}

	if err != nil {
		return identity, catalogerrors.Wrap(err, catalogerrors.CodeAuthenticationError, "invalid ID token")
	}
	if verified, ok := claims["email_verified"].(bool); !ok || !verified {
		return identity, authErr("email not verified")
	}
	if err := checkAllowed(v.allowed, identity.Email); err != nil {
		return identity, err
	}
	return identity, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

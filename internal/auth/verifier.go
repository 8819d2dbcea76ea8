// Package auth gates every data-access call. There is no anonymous read
// path: a request either presents a verifiable identity token or is refused
// before it touches the store.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"syscatalog/pkg/catalogerrors"
)

// Verifier turns an opaque bearer token into a normalized identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

// AuditLog records authentication outcomes. Satisfied by *audit.Logger.
type AuditLog interface {
	Auth(ctx context.Context, email, action, status string)
}

// TokenInfoVerifier validates tokens against an external token-info
// endpoint (Google's oauth2 tokeninfo shape).
type TokenInfoVerifier struct {
	endpoint string
	clientID string
	allowed  map[string]struct{}
	client   *http.Client
	audit    AuditLog
	logger   *slog.Logger
	clock    func() time.Time
}

type TokenInfoOption func(*TokenInfoVerifier)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) TokenInfoOption {
	return func(v *TokenInfoVerifier) {
		if client != nil {
			v.client = client
		}
	}
}

// WithTokenInfoClock sets the expiry comparison time source.
func WithTokenInfoClock(clock func() time.Time) TokenInfoOption {
	return func(v *TokenInfoVerifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

func NewTokenInfoVerifier(endpoint, clientID string, allowedUsers []string, auditLog AuditLog, logger *slog.Logger, opts ...TokenInfoOption) *TokenInfoVerifier {
	v := &TokenInfoVerifier{
		endpoint: endpoint,
		clientID: clientID,
		allowed:  allowSet(allowedUsers),
		client:   &http.Client{Timeout: 10 * time.Second},
		audit:    auditLog,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	identity, err := v.verify(ctx, idToken)
	if err != nil {
		v.audit.Auth(ctx, identity.Email, "login", "failed")
		return Identity{}, err
	}
	v.audit.Auth(ctx, identity.Email, "login", "success")
	return identity, nil
}

func (v *TokenInfoVerifier) verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, authErr("missing or invalid ID token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return Identity{}, catalogerrors.Wrap(err, catalogerrors.CodeAuthenticationError, "token validation request failed")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, catalogerrors.Wrap(err, catalogerrors.CodeAuthenticationError, "token validation request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, authErr(fmt.Sprintf("token validation failed with status: %d", resp.StatusCode))
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, catalogerrors.Wrap(err, catalogerrors.CodeAuthenticationError, "malformed token validation response")
	}

	identity := Identity{
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
		Subject:  info.Sub,
		Audience: info.Aud,
		Expiry:   time.Unix(int64(info.Exp), 0),
	}

	if info.ErrorDescription != "" {
		return identity, authErr("invalid ID token: " + info.ErrorDescription)
	}
	if info.Aud != v.clientID {
		return identity, authErr("invalid token audience")
	}
	if identity.Expiry.Before(v.clock()) {
		return identity, authErr("token expired")
	}
	if !bool(info.EmailVerified) {
		return identity, authErr("email not verified")
	}
	if err := checkAllowed(v.allowed, info.Email); err != nil {
		return identity, err
	}
	return identity, nil
}

func allowSet(users []string) map[string]struct{} {
	if len(users) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	return set
}

// checkAllowed enforces the optional email allow-list. An empty list admits
// any verified identity.
func checkAllowed(allowed map[string]struct{}, email string) error {
	if allowed == nil {
		return nil
	}
	if _, ok := allowed[strings.ToLower(email)]; !ok {
		return authErr("unauthorized user")
	}
	return nil
}

func authErr(message string) error {
	return catalogerrors.New(catalogerrors.CodeAuthenticationError, message)
}

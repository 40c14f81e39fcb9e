// Package auth verifies the bearer tokens issued by the hosted identity
// provider and carries the caller's identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/learner"
)

// Identity is the authenticated caller.
type Identity struct {
	LearnerID string
	Email     string
	FullName  string
	Role      learner.Role
}

// Claims are the token claims read by the service. Subject is the learner ID.
//
// The hosted provider sets Role to its own database role ("authenticated")
// and keeps application data in the metadata objects, so the onboarding role
// is read from AppMetadata first.
type Claims struct {
	Email        string       `json:"email,omitempty"`
	FullName     string       `json:"full_name,omitempty"`
	Role         string       `json:"role,omitempty"`
	AppMetadata  AppMetadata  `json:"app_metadata,omitzero"`
	UserMetadata UserMetadata `json:"user_metadata,omitzero"`
	jwt.RegisteredClaims
}

// AppMetadata is provider metadata only administrators can change.
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// UserMetadata is provider metadata the user supplied at sign up.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// role returns the first recognised onboarding role in the claims, or
// trainee. Values such as "authenticated" are not onboarding roles.
func (c *Claims) role() learner.Role {
	for _, r := range []string{c.AppMetadata.Role, c.Role} {
		if role := learner.Role(r); role.Valid() {
			return role
		}
	}
	return learner.RoleTrainee
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses token and returns the identity it carries. Every failure
// wraps apperr.ErrUnauthorized.
func (v *Verifier) Verify(token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: token has expired", apperr.ErrUnauthorized)
		}
		return Identity{}, fmt.Errorf("%w: invalid token: %v", apperr.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthorized)
	}

	id := Identity{
		LearnerID: claims.Subject,
		Email:     claims.Email,
		FullName:  claims.FullName,
		Role:      claims.role(),
	}
	if id.FullName == "" {
		id.FullName = claims.UserMetadata.FullName
	}
	return id, nil
}

// Issue signs a token for id valid for ttl, shaped like the hosted
// provider's tokens. The hosted provider issues production tokens; this serves
// local development and tests.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        id.Email,
		Role:         "authenticated",
		AppMetadata:  AppMetadata{Role: string(id.Role)},
		UserMetadata: UserMetadata{FullName: id.FullName},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.LearnerID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest returns the bearer token from the Authorization header, or
// the access_token query parameter for websocket upgrades where browsers
// cannot set headers.
func TokenFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

/*
auth.go - Bearer token authentication

PURPOSE:
  Turns an HS256 JWT into the leave.Principal the engine works with. The
  engine never inspects tokens; it only sees the principal's employee id,
  master flag and permission list.

CLAIMS:
  sub          Employee id of the caller
  is_master    Master users may act on their own requests
  permissions  e.g. ["leave_management:update", "leave_management:read_all"]

SEE ALSO:
  - leave/types.go: Principal and permission constants
  - server.go: Where the middleware is mounted
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/leave-engine/leave"
)

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	IsMaster    bool     `json:"is_master,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Authenticator verifies and issues tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an authenticator for an HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// ErrNoSecret is returned by Issue and Parse when the secret is empty.
var ErrNoSecret = errors.New("jwt secret is not configured")

// Issue signs a token for p. Used by tooling and tests.
func (a *Authenticator) Issue(p leave.Principal, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrNoSecret
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		IsMaster:    p.IsMaster,
		Permissions: p.Permissions,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token and returns its principal.
func (a *Authenticator) Parse(tokenString string) (leave.Principal, error) {
	if len(a.secret) == 0 {
		return leave.Principal{}, ErrNoSecret
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithTimeFunc(a.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return leave.Principal{}, err
	}
	if claims.Subject == "" {
		return leave.Principal{}, fmt.Errorf("token has no subject")
	}
	return leave.Principal{
		EmployeeID:  claims.Subject,
		IsMaster:    claims.IsMaster,
		Permissions: claims.Permissions,
	}, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p leave.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(ctx context.Context) (leave.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(leave.Principal)
	return p, ok
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || tokenString == "" {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token.", nil)
			return
		}
		p, err := a.Parse(tokenString)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "invalid_token", "Not authorized, token failed.", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequirePermission allows the request through when the caller holds perm.
// Master users pass every check.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok || !p.Has(perm) {
				writeErrorCode(w, http.StatusForbidden, "forbidden", "Forbidden: You do not have the required permission.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

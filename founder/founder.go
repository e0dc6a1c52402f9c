// Package founder gates the operations endpoints behind a fixed
// allowlist of operator identities.
package founder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/christianberko/orobor-website/core/httpio"
)

// SessionCookie is the cookie carrying the identity provider's access
// token.
const SessionCookie = "sb_session"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Identity struct {
	Email string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Gate verifies session tokens issued by the identity provider and
// checks the resolved email against the founder allowlist.
type Gate struct {
	secret   []byte
	founders []string
	log      *slog.Logger
}

func NewGate(secret string, founders []string, log *slog.Logger) *Gate {
	return &Gate{
		secret:   []byte(secret),
		founders: founders,
		log:      log,
	}
}

// Verify resolves a session token to an identity without consulting
// the allowlist. A missing or invalid token, or a token carrying no
// email, fails ErrUnauthenticated.
func (g *Gate) Verify(token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrUnauthenticated
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Email == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{Email: claims.Email}, nil
}

// Authorize is Verify plus the allowlist check. A valid identity
// outside the allowlist fails ErrForbidden, distinct from
// ErrUnauthenticated.
func (g *Gate) Authorize(token string) (Identity, error) {
	id, err := g.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	if !g.IsFounder(id.Email) {
		return Identity{}, ErrForbidden
	}
	return id, nil
}

// IsFounder reports whether an email is on the allowlist.
func (g *Gate) IsFounder(email string) bool {
	for _, founder := range g.founders {
		if strings.EqualFold(founder, email) {
			return true
		}
	}
	return false
}

// SessionToken extracts the session credential from the request, cookie
// first, then the Authorization header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireFounder wraps a handler so only allowlisted identities get
// through. The resolved identity is exposed via the request context.
func (g *Gate) RequireFounder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authorize(SessionToken(r))
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				g.log.Info("founder access denied", "path", r.URL.Path)
				httpio.ForbiddenResponse(w, "Access denied. Founders only.")
				return
			}
			httpio.UnauthorizedResponse(w, "Invalid or missing session token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Package auth authenticates callers with Firebase ID tokens and gates the
// admin-only operations.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
)

// Verifier is the subset of the Firebase Auth client we use.
// Note: *fbauth.Client automatically satisfies it.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Identity is the authenticated caller placed on the request context.
type Identity struct {
	UID   string
	Admin bool
}

type contextKey struct{}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Middleware verifies bearer ID tokens and resolves the admin capability from
// either the admin custom claim or a configured uid allow-list.
type Middleware struct {
	verifier  Verifier
	adminUIDs map[string]struct{}
	logger    *slog.Logger
}

func NewMiddleware(verifier Verifier, adminUIDs []string, logger *slog.Logger) *Middleware {
	allow := make(map[string]struct{}, len(adminUIDs))
	for _, uid := range adminUIDs {
		if trimmed := strings.TrimSpace(uid); trimmed != "" {
			allow[trimmed] = struct{}{}
		}
	}
	return &Middleware{
		verifier:  verifier,
		adminUIDs: allow,
		logger:    logger.With("component", "AuthMiddleware"),
	}
}

// Authenticate rejects requests without a valid bearer ID token and attaches
// the caller identity to the context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idToken, ok := bearerToken(r)
		if !ok {
			response.WriteJSONError(w, http.StatusUnauthorized, "sign in required")
			return
		}

		token, err := m.verifier.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			m.logger.Debug("ID token rejected", "err", err)
			response.WriteJSONError(w, http.StatusUnauthorized, "sign in required")
			return
		}

		identity := Identity{UID: token.UID, Admin: m.isAdmin(token)}
		ctx := context.WithValue(r.Context(), contextKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated callers without the admin capability.
// It must run inside Authenticate; the check happens before any dispatch work.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			response.WriteJSONError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		if !identity.Admin {
			m.logger.Warn("Non-admin caller rejected", "uid", identity.UID)
			response.WriteJSONError(w, http.StatusForbidden, "admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAdmin: admin custom claim OR uid in the configured allow-list.
func (m *Middleware) isAdmin(token *fbauth.Token) bool {
	if claim, ok := token.Claims["admin"].(bool); ok && claim {
		return true
	}
	_, allowed := m.adminUIDs[token.UID]
	return allowed
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

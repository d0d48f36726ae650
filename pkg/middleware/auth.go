package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shoplite/storefront/pkg/httputil"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	ID    string
	Name  string
	Admin bool
}

// Auth returns middleware that validates the JWT bearer token on every
// request and stores the caller's Identity in the request context.
// Requests without a valid token are rejected with 401.
func Auth(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteMessage(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.WriteMessage(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", errString(err)),
				)
				httputil.WriteMessage(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				httputil.WriteMessage(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			identity := Identity{}
			identity.ID, _ = claims["user_id"].(string)
			if identity.ID == "" {
				identity.ID, _ = claims["sub"].(string)
			}
			identity.Name, _ = claims["name"].(string)
			identity.Admin, _ = claims["is_admin"].(bool)

			if identity.ID == "" {
				httputil.WriteMessage(w, http.StatusUnauthorized, "token carries no user identity")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated callers without the admin capability.
// It must be mounted after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteMessage(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !identity.Admin {
			httputil.WriteMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext extracts the authenticated Identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given Identity. Intended for
// tests and internal calls that bypass the HTTP middleware.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}

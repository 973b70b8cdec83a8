package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-push-scheduler/internal/domain"
	jwtinfra "github.com/go-push-scheduler/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const claimsKey contextKey = "claims"

// TriggerKeyHeader carries the scheduler's shared key.
const TriggerKeyHeader = "X-Trigger-Key"

// triggerSubject identifies requests authenticated by the trigger key.
const triggerSubject = "trigger-key"

// Auth accepts either an operator Bearer JWT or, when keyHash is set, the
// trigger key header checked against its bcrypt hash. Either way the caller's
// claims are injected into the context. provider may be nil to disable JWTs.
func Auth(provider *jwtinfra.Provider, keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(TriggerKeyHeader); key != "" {
				if keyHash == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
					writeJSONError(w, http.StatusUnauthorized, "invalid trigger key")
					return
				}
				claims := &jwtinfra.Claims{
					Role:             domain.RoleOperator,
					RegisteredClaims: jwt.RegisteredClaims{Subject: triggerSubject},
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if provider == nil || !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := provider.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFromContext extracts the caller's claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

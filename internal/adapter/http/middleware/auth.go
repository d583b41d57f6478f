package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/infrastructure/auth"
	"github.com/iho/tillclose/internal/infrastructure/metrics"
)

// Authenticator verifies bearer tokens and places the operator on the
// request context.
type Authenticator struct {
	jwtManager *auth.JWTManager
	metrics    *metrics.Metrics
}

// NewAuthenticator creates an Authenticator. m may be nil.
func NewAuthenticator(jwtManager *auth.JWTManager, m *metrics.Metrics) *Authenticator {
	return &Authenticator{jwtManager: jwtManager, metrics: m}
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			a.fail(w, "missing_token", err.Error())
			return
		}

		claims, err := a.jwtManager.Verify(tokenString)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, domain.ErrExpiredToken) {
				reason = "expired_token"
			}
			a.fail(w, reason, "invalid or expired token")
			return
		}

		ctx := domain.WithOperator(r.Context(), claims.Operator())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional extracts the operator if a valid token is present but never
// rejects the request.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err == nil {
			if claims, err := a.jwtManager.Verify(tokenString); err == nil {
				r = r.WithContext(domain.WithOperator(r.Context(), claims.Operator()))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) fail(w http.ResponseWriter, reason, message string) {
	if a.metrics != nil {
		a.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	http.Error(w, message, http.StatusUnauthorized)
}

// RequireMutator rejects read-only operators on non-GET requests.
func RequireMutator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		op, ok := domain.OperatorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !op.Role.CanMutate() {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}

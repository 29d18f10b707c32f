package presentation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/presentation/helpers"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the payload of an admin bearer token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// IssueAdminToken signs an HS256 admin token for subject.
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AdminOnly rejects requests without a valid admin or owner bearer token.
func AdminOnly(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				helpers.HttpError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims AdminClaims
			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					helpers.HttpError(w, http.StatusUnauthorized, "token expired")
					return
				}
				logger.Debug("admin token rejected", "err", err)
				helpers.HttpError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Role != "admin" && claims.Role != "owner" {
				helpers.HttpError(w, http.StatusForbidden, "admin privileges required")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Subject)))
		})
	}
}

// AdminSubject returns the subject of the admin token that authorized r.
func AdminSubject(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

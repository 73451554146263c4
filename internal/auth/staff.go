package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys
type contextKey string

// StaffContextKey is the key for storing staff claims in context
const StaffContextKey contextKey = "staff"

// StaffClaims are the claims carried by a staff bearer token. The wider ERP
// issues these; this service only validates them for the instructor
// endpoints (rotate, deactivate, QR display, roster).
type StaffClaims struct {
	StaffID string `json:"staff_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// StaffTokenManager validates (and, for tests and tooling, issues) staff
// bearer tokens
type StaffTokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewStaffTokenManager creates a new StaffTokenManager
func NewStaffTokenManager(secret string, expiry time.Duration) *StaffTokenManager {
	return &StaffTokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate creates a signed staff token
func (tm *StaffTokenManager) Generate(staffID string) (string, error) {
	now := time.Now()
	claims := &StaffClaims{
		StaffID: staffID,
		Role:    "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Validate parses and verifies a staff token
func (tm *StaffTokenManager) Validate(tokenString string) (*StaffClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StaffClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*StaffClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Role != "staff" {
		return nil, fmt.Errorf("insufficient role")
	}

	return claims, nil
}

// RequireStaff validates the Authorization bearer token and injects staff
// claims into the request context
func RequireStaff(tm *StaffTokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), StaffContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

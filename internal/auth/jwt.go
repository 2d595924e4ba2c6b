package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "userID"
const bucketKey contextKey = "bucket"
const roleKey contextKey = "role"

// RoleReviewer marks users allowed to approve or reject publications.
const RoleReviewer = "reviewer"

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string
}

// NewJWTConfig creates a new JWT config
func NewJWTConfig(secretKey string) *JWTConfig {
	if secretKey == "" {
		secretKey = "default-secret-key-change-in-production" // Default for development
	}
	return &JWTConfig{SecretKey: secretKey}
}

// Middleware creates a JWT authentication middleware. Claims carry the
// user id (sub), the user's private bucket and an optional role.
func (c *JWTConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Development mode: identity headers instead of a token
		if bucket := r.Header.Get("X-Bucket"); bucket != "" {
			ctx := context.WithValue(r.Context(), bucketKey, bucket)
			if userID := r.Header.Get("X-User-ID"); userID != "" {
				ctx = context.WithValue(ctx, userIDKey, userID)
			}
			if role := r.Header.Get("X-Role"); role != "" {
				ctx = context.WithValue(ctx, roleKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			// Allow anonymous access for now (can be made stricter)
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(c.SecretKey), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Invalid token claims", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		if userID, _ := claims["sub"].(string); userID != "" {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		if bucket, _ := claims["bucket"].(string); bucket != "" {
			ctx = context.WithValue(ctx, bucketKey, bucket)
		}
		if role, _ := claims["role"].(string); role != "" {
			ctx = context.WithValue(ctx, roleKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetBucket extracts the user's private bucket from context
func GetBucket(ctx context.Context) string {
	if bucket, ok := ctx.Value(bucketKey).(string); ok {
		return bucket
	}
	return ""
}

// IsReviewer reports whether the caller may approve or reject
func IsReviewer(ctx context.Context) bool {
	role, _ := ctx.Value(roleKey).(string)
	return role == RoleReviewer
}

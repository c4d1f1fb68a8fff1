package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"game-night/internal/auth"
	"game-night/internal/db"
	"game-night/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	db         *db.MongoDB
}

func NewAuthMiddleware(jwtService *auth.JWTService, database *db.MongoDB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		db:         database,
	}
}

// RequireAuth validates JWT and loads user into context
// Returns 401 if token is missing or invalid
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, errMsg := m.authenticate(r)
		if user == nil {
			http.Error(w, errMsg, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is RequireAuth plus an admin check.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok || !user.IsAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// OptionalAuth validates JWT if present, but allows request to continue without auth
// Useful for endpoints that work for both authenticated and anonymous users
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := m.authenticate(r)
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the bearer token to an active user. Returns a nil
// user and a client-safe message when the request carries no valid token.
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "Invalid authorization header format"
	}
	tokenString := parts[1]

	claims, err := m.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, "Token has expired"
		}
		return nil, "Invalid token"
	}

	// Check if this access token has been revoked (e.g. user logged out)
	if m.isTokenRevoked(r.Context(), tokenString) {
		return nil, "Token has been revoked"
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, "Invalid user ID"
	}

	var user models.User
	err = m.db.Users().FindOne(r.Context(), bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return nil, "User not found"
	}
	if !user.IsActive {
		return nil, "User account is inactive"
	}

	return &user, ""
}

// isTokenRevoked checks if the given raw token has been revoked (e.g. on logout).
func (m *AuthMiddleware) isTokenRevoked(ctx context.Context, rawToken string) bool {
	hash := sha256.Sum256([]byte(rawToken))
	tokenHash := base64.StdEncoding.EncodeToString(hash[:])

	count, err := m.db.RevokedTokens().CountDocuments(ctx, bson.M{"tokenHash": tokenHash})
	if err != nil {
		log.Printf("Warning: revoked-token lookup failed: %v", err)
		return false // fail-open to avoid locking everyone out on DB hiccup
	}
	return count > 0
}

// GetUserFromContext retrieves the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"freelance-marketplace-backend/internal/config"
	"freelance-marketplace-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	UserIDKey     = "user_id"
	MembershipKey = "membership"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errEmptyToken    = errors.New("empty token")
)

// AuthMiddleware rejects requests without a valid HS256 bearer token. The
// "sub" claim must be a UUID; an optional "membership" claim carries the
// user's tier.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tier, err := authenticate(c.GetHeader("Authorization"), cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: err.Error(),
			})
			return
		}
		c.Set(UserIDKey, userID)
		c.Set(MembershipKey, tier)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, tier, err := authenticate(c.GetHeader("Authorization"), cfg.JWTSecret); err == nil {
			c.Set(UserIDKey, userID)
			c.Set(MembershipKey, tier)
		}
		c.Next()
	}
}

// UserID returns the authenticated user, or uuid.Nil for anonymous callers.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func Membership(c *gin.Context) string {
	return c.GetString(MembershipKey)
}

func authenticate(header, secret string) (uuid.UUID, string, error) {
	if header == "" {
		return uuid.Nil, "", errMissingHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return uuid.Nil, "", errHeaderFormat
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return uuid.Nil, "", errEmptyToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		if secret == "" {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, "", errors.New("token has expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, "", errors.New("token signature is invalid")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, "", errors.New("token is malformed")
		}
		return uuid.Nil, "", errors.New("invalid token")
	}
	if !token.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, "", errors.New("missing user id in token")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", errors.New("user id in token is not a valid UUID")
	}

	tier, _ := claims["membership"].(string)
	return userID, tier, nil
}

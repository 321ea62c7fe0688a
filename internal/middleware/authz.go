package middleware

import (
	"errors"
	"net/http"
	"strings"

	"day-planner/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const ownerContextKey = "owner"

type AuthzConfig struct {
	Secret string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// OwnerClaims is the token payload issued by the account service.
type OwnerClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Timezone string `json:"tz,omitempty"`
	jwt.RegisteredClaims
}

// AuthzMiddleware authenticates the bearer token and stores the owner it
// names on the context. Tokens are verified, never issued, here.
func AuthzMiddleware(config AuthzConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		var claims OwnerClaims
		_, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
			return []byte(config.Secret), nil
		})
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "expired_token",
				"message": "Token has expired",
			})
			return
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_issuer",
				"message": "Token issuer is invalid",
			})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token validation failed",
			})
			return
		}

		id := claims.UserID
		if id == "" {
			id = claims.Subject
		}
		ownerID, err := uuid.FromString(id)
		if err != nil || ownerID.IsNil() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_claims",
				"message": "Token does not name a user",
			})
			return
		}

		SetOwner(c, &models.Owner{
			ID:       ownerID,
			Username: claims.Username,
			Timezone: claims.Timezone,
		})
		c.Next()
	}
}

// OwnerFromContext returns the owner set by AuthzMiddleware.
func OwnerFromContext(c *gin.Context) (*models.Owner, bool) {
	v, ok := c.Get(ownerContextKey)
	if !ok {
		return nil, false
	}
	owner, ok := v.(*models.Owner)
	return owner, ok && owner != nil
}

// SetOwner stores owner on the context the way AuthzMiddleware does.
func SetOwner(c *gin.Context, owner *models.Owner) {
	c.Set(ownerContextKey, owner)
}

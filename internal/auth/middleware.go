package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

const identityKey = "identity"

// AuthMiddleware validates bearer tokens. With authentication disabled
// every request runs as a local admin.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Set(identityKey, LocalIdentity())
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(
				types.CodeAuthUnauthorized, "missing authorization header", nil))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(
				types.CodeAuthUnauthorized, "invalid authorization header format", nil))
			return
		}

		identity, err := a.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(
				types.CodeAuthUnauthorized, err.Error(), nil))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequirePermission checks if the caller has the required permission
func RequirePermission(required Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, types.NewErrorResponse(
				types.CodeAuthForbidden, "no permissions found", nil))
			return
		}

		if !identity.Has(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, types.NewErrorResponse(
				types.CodeAuthForbidden, "insufficient permissions", gin.H{"required": string(required)}))
			return
		}

		c.Next()
	}
}

// GetIdentity returns the caller stored by AuthMiddleware.
func GetIdentity(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}

package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// POST /api/v1/auth/login
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeAuthBadRequest, "Invalid request body", err.Error()))
		return
	}

	token, expires, err := s.authService.LoginUser(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.CodeAuthUnauthorized, "Invalid credentials", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeAuthFailed, "Failed to issue token", err.Error()))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expires).Seconds()),
	})
}

// GET /api/v1/auth/me
func (s *Server) getCurrentUser(c *gin.Context) {
	identity := auth.GetIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.CodeAuthUnauthorized, "Not authenticated", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        identity.Name,
		"role":        identity.Role,
		"machine":     identity.Machine,
		"permissions": identity.Permissions,
	})
}

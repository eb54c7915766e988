package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/config"
)

func cheapHasher() *PasswordHasher {
	return &PasswordHasher{memory: 64, iterations: 1, parallelism: 1, saltLength: 16, keyLength: 32}
}

func newService(t *testing.T, enabled bool) (*AuthService, string) {
	t.Helper()
	hash, err := cheapHasher().HashPassword("s3cret")
	require.NoError(t, err)

	token, tokenHash, err := GenerateMachineToken()
	require.NoError(t, err)

	t.Setenv("FLASHER_TEST_JWT", "test-secret-that-is-long-enough-for-hs256")
	cfg := config.AuthConfig{
		Enabled:        enabled,
		JWTSecretEnv:   "FLASHER_TEST_JWT",
		AccessTokenTTL: time.Minute,
		Operators: []config.OperatorConfig{
			{Username: "alice", PasswordHash: hash, Role: "deployer"},
		},
		MachineTokens: []config.MachineTokenConfig{
			{Name: "ci", TokenHash: tokenHash, Role: "viewer"},
		},
	}
	return NewAuthService(cfg, zap.NewNop()), token
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := cheapHasher()
	hash, err := h.HashPassword("pw")
	require.NoError(t, err)

	ok, err := h.VerifyPassword("pw", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.VerifyPassword("other", hash)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = h.VerifyPassword("pw", "plain")
	require.ErrorIs(t, err, ErrInvalidHash)
}

func TestLoginAndValidate(t *testing.T) {
	svc, _ := newService(t, true)

	token, expires, err := svc.LoginUser(context.Background(), "alice", "s3cret", "127.0.0.1")
	require.NoError(t, err)
	require.True(t, expires.After(time.Now()))

	identity, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "alice", identity.Name)
	require.True(t, identity.Has(PermDeployer))
	require.False(t, identity.Has(PermAdmin))

	_, _, err = svc.LoginUser(context.Background(), "alice", "wrong", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.LoginUser(context.Background(), "bob", "s3cret", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_MachineToken(t *testing.T) {
	svc, token := newService(t, true)

	identity, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.True(t, identity.Machine)
	require.Equal(t, "ci", identity.Name)
	require.True(t, identity.Has(PermViewer))
	require.False(t, identity.Has(PermDeployer))

	other, _, err := GenerateMachineToken()
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), other)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, machine := newService(t, true)

	r := gin.New()
	r.Use(svc.AuthMiddleware())
	r.GET("/view", RequirePermission(PermViewer), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/deploy", RequirePermission(PermDeployer), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, path, header string) int {
		req := httptest.NewRequest(method, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/view", ""))
	require.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/view", "Token abc"))
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/view", "Bearer "+machine))
	require.Equal(t, http.StatusForbidden, do(http.MethodPost, "/deploy", "Bearer "+machine))

	jwtToken, _, err := svc.LoginUser(context.Background(), "alice", "s3cret", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, do(http.MethodPost, "/deploy", "Bearer "+jwtToken))
}

func TestMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newService(t, false)

	r := gin.New()
	r.Use(svc.AuthMiddleware())
	r.POST("/deploy", RequirePermission(PermAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deploy", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

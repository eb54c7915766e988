package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/config"
)

type Permission string

const (
	PermViewer   Permission = "viewer"
	PermDeployer Permission = "deployer"
	PermAdmin    Permission = "admin"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Identity is the authenticated caller.
type Identity struct {
	Name        string
	Role        string
	Machine     bool
	Permissions []Permission
}

// Has reports whether the identity carries perm.
func (i *Identity) Has(perm Permission) bool {
	for _, p := range i.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// LocalIdentity is used for every caller while authentication is off.
func LocalIdentity() *Identity {
	return &Identity{Name: "local", Role: "admin", Permissions: roleToPermissions("admin")}
}

type account struct {
	passwordHash string
	role         string
}

type machineToken struct {
	name string
	hash string
	role string
}

// AuthService authenticates operators and machine tokens declared in the
// configuration.
type AuthService struct {
	enabled        bool
	jwtHandler     *JWTHandler
	passwordHasher *PasswordHasher
	operators      map[string]account
	machineTokens  []machineToken
	logger         *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	a := &AuthService{
		enabled:        cfg.Enabled,
		jwtHandler:     NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		passwordHasher: NewPasswordHasher(),
		operators:      make(map[string]account, len(cfg.Operators)),
		logger:         logger,
	}
	for _, op := range cfg.Operators {
		a.operators[op.Username] = account{passwordHash: op.PasswordHash, role: op.Role}
	}
	for _, mt := range cfg.MachineTokens {
		a.machineTokens = append(a.machineTokens, machineToken{name: mt.Name, hash: mt.TokenHash, role: mt.Role})
	}

	if cfg.Enabled && !cfg.IsProductionReady() {
		logger.Warn("Authentication uses the development JWT secret")
	}
	return a
}

// Enabled reports whether requests need a token.
func (a *AuthService) Enabled() bool {
	return a.enabled
}

// LoginUser checks an operator's password and returns an access token.
func (a *AuthService) LoginUser(ctx context.Context, username, password, ipAddress string) (string, time.Time, error) {
	acc, ok := a.operators[username]
	if !ok {
		a.logger.Warn("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "unknown user"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	valid, err := a.passwordHasher.VerifyPassword(password, acc.passwordHash)
	if err != nil || !valid {
		a.logger.Warn("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "invalid password"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := a.jwtHandler.GenerateAccessToken(username, acc.role)
	if err != nil {
		return "", time.Time{}, err
	}
	a.logger.Info("Operator logged in", zap.String("username", username), zap.String("ip", ipAddress))
	return token, expires, nil
}

// ValidateToken accepts a JWT access token or a machine token.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	if claims, err := a.jwtHandler.ValidateAccessToken(token); err == nil {
		return &Identity{
			Name:        claims.Username,
			Role:        claims.Role,
			Permissions: roleToPermissions(claims.Role),
		}, nil
	}

	return a.validateMachineToken(token)
}

func (a *AuthService) validateMachineToken(token string) (*Identity, error) {
	if !validMachineTokenFormat(token) {
		return nil, ErrInvalidToken
	}

	hash := HashMachineToken(token)
	for _, mt := range a.machineTokens {
		if subtle.ConstantTimeCompare([]byte(hash), []byte(mt.hash)) == 1 {
			return &Identity{
				Name:        mt.name,
				Role:        mt.role,
				Machine:     true,
				Permissions: roleToPermissions(mt.role),
			}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HashPassword produces an argon2id hash suitable for the operator list.
func (a *AuthService) HashPassword(password string) (string, error) {
	return a.passwordHasher.HashPassword(password)
}

func roleToPermissions(role string) []Permission {
	switch role {
	case "admin":
		return []Permission{PermViewer, PermDeployer, PermAdmin}
	case "deployer":
		return []Permission{PermViewer, PermDeployer}
	default:
		return []Permission{PermViewer}
	}
}

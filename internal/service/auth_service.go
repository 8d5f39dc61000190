package service

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/auth"
	"github.com/spec-kit/collections-sequencer/internal/config"
	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// AuthService authenticates operators against the config-defined credentials
// and issues bearer tokens for the command API.
type AuthService struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		cfg:    cfg,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies an operator credential and returns a signed token.
func (s *AuthService) Login(operatorID, secret string) (string, time.Time, domain.OperatorRole, error) {
	role, hash, ok := s.lookup(operatorID)
	if !ok || hash == "" {
		return "", time.Time{}, "", apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.CompareCredential(hash, secret); err != nil {
		return "", time.Time{}, "", apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokens.GenerateToken(operatorID, role)
	if err != nil {
		return "", time.Time{}, "", apperrors.NewInternalError(err)
	}
	return token, expiresAt, role, nil
}

func (s *AuthService) lookup(operatorID string) (domain.OperatorRole, string, bool) {
	switch operatorID {
	case s.cfg.AdminID:
		return domain.OperatorRoleAdmin, s.cfg.AdminPasswordHash, true
	case s.cfg.OperatorID:
		return domain.OperatorRoleOperator, s.cfg.OperatorPasswordHash, true
	}
	return "", "", false
}

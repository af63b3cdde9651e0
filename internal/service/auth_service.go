package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticket-system/internal/auth"
	"github.com/supportdesk/ticket-system/internal/config"
	"github.com/supportdesk/ticket-system/internal/domain"
	"github.com/supportdesk/ticket-system/internal/repository"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// AuthService verifies credentials against stored values and issues tokens.
// Account management lives outside this system; users only get read.
type AuthService struct {
	db       repository.Querier
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, db repository.Querier, users repository.UserRepository) *AuthService {
	return &AuthService{
		db:       db,
		users:    users,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, "", time.Time{}, apperrors.NewPersistenceError(err)
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid username or password")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid username or password")
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// ListAdmins returns active administrators, used to populate assignee
// choices.
func (s *AuthService) ListAdmins(ctx context.Context) ([]domain.User, error) {
	admins, err := s.users.ListAdmins(ctx, s.db)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return admins, nil
}

// TokenManager exposes the configured token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

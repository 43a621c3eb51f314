package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract for authentication.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (uuid.UUID, error)
	Login(ctx context.Context, email, password string) (string, string, error)
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
}

func NewAuthService(repo AuthRepo, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (uuid.UUID, error) {
	userID, err := s.repo.Register(ctx, name, email, password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
		return uuid.Nil, err
	}
	return userID, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, string, error) {
	return s.repo.Login(ctx, email, password)
}

func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	return s.repo.RefreshSession(ctx, refreshToken)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.Logout(ctx, refreshToken)
}

func (s *AuthServiceImpl) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return s.repo.InvalidateAllUserRefreshTokens(ctx, userID)
}

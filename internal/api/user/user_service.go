package user

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetMe(ctx context.Context, userID string) (*types.User, error)
	UpdateHandle(ctx context.Context, userID, handle string) (*types.User, error)

	// HasHandle reports whether the caller has picked a handle yet.
	HasHandle(ctx context.Context, userID string) (bool, error)
}

// handleRe matches the public handle format: lowercase, 3 to 20 characters.
var handleRe = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ErrInvalidHandle is returned when the requested handle fails validation.
var ErrInvalidHandle = fmt.Errorf("handle must be 3-20 characters of a-z, 0-9 or _")

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewUserService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) GetMe(ctx context.Context, userID string) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetMe")
	defer span.End()
	return s.repo.GetUserByID(ctx, userID)
}

// NormalizeHandle lowercases and trims a handle before validation and lookup
// so "CoffeeFan" and "coffeefan" are the same user.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

func (s *ServiceImpl) UpdateHandle(ctx context.Context, userID, handle string) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateHandle")
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateHandle"), slog.String("userID", userID))

	handle = NormalizeHandle(handle)
	if !handleRe.MatchString(handle) {
		return nil, ErrInvalidHandle
	}

	if err := s.repo.UpdateHandle(ctx, userID, handle); err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Handle updated", slog.String("handle", handle))
	return s.repo.GetUserByID(ctx, userID)
}

func (s *ServiceImpl) HasHandle(ctx context.Context, userID string) (bool, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "HasHandle")
	defer span.End()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Handle != nil && *u.Handle != "", nil
}

package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/api/user"
	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("you are already friends")
	ErrDuplicateRequest = errors.New("a friend request between you already exists")
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*types.FriendsListResponse, error)
	SendRequest(ctx context.Context, userID uuid.UUID, handle string) (*types.PublicUser, error)
	AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) error
	RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewFriendsService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) List(ctx context.Context, userID uuid.UUID) (*types.FriendsListResponse, error) {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "List")
	defer span.End()

	friends, err := s.repo.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.GetPendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	sent, err := s.repo.GetSentRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("friends.count", len(friends)),
		attribute.Int("pending.count", len(pending)),
	)
	return &types.FriendsListResponse{
		Friends:         friends,
		PendingRequests: pending,
		SentRequests:    sent,
	}, nil
}

func (s *ServiceImpl) SendRequest(ctx context.Context, userID uuid.UUID, handle string) (*types.PublicUser, error) {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "SendRequest", trace.WithAttributes(
		attribute.String("receiver.handle", handle),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SendRequest"), slog.String("userID", userID.String()))

	receiver, err := s.repo.GetUserByHandle(ctx, user.NormalizeHandle(handle))
	if err != nil {
		return nil, err
	}
	if receiver.ID == userID {
		return nil, ErrSelfRequest
	}

	alreadyFriends, err := s.repo.AreFriends(ctx, userID, receiver.ID)
	if err != nil {
		return nil, err
	}
	if alreadyFriends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.repo.PendingRequestExists(ctx, userID, receiver.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	if _, err := s.repo.CreateFriendRequest(ctx, userID, receiver.ID); err != nil {
		// Unique index catches the race between the existence check and insert.
		if errors.Is(err, types.ErrConflict) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	l.InfoContext(ctx, "Friend request sent", slog.String("receiverID", receiver.ID.String()))
	return receiver, nil
}

func (s *ServiceImpl) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "AcceptRequest")
	defer span.End()

	l := s.logger.With(slog.String("method", "AcceptRequest"), slog.String("userID", userID.String()))

	row, err := s.repo.GetFriendRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if row.ReceiverID != userID {
		return fmt.Errorf("only the receiver can accept a friend request: %w", types.ErrForbidden)
	}

	if err := s.repo.AcceptFriendRequest(ctx, requestID); err != nil {
		return err
	}

	l.InfoContext(ctx, "Friend request accepted", slog.String("requestID", requestID.String()))
	return nil
}

func (s *ServiceImpl) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "RejectRequest")
	defer span.End()

	row, err := s.repo.GetFriendRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if row.ReceiverID != userID {
		return fmt.Errorf("only the receiver can reject a friend request: %w", types.ErrForbidden)
	}

	return s.repo.DeleteFriendRequest(ctx, requestID)
}

func (s *ServiceImpl) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "RemoveFriend")
	defer span.End()

	if err := s.repo.RemoveFriend(ctx, userID, friendID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Friend removed",
		slog.String("userID", userID.String()),
		slog.String("friendID", friendID.String()),
	)
	return nil
}

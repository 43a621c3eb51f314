package reviews

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/api/memory"
	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

var (
	ErrMissingPlace  = errors.New("placeId and name are required")
	ErrInvalidRating = errors.New("rating must be a number between 1 and 5")
)

const memoryAppendTimeout = 10 * time.Second

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req types.CreateReviewRequest) (*types.CreateReviewResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]types.Review, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	memory memory.Client
}

func NewReviewsService(repo Repository, memoryClient memory.Client, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		memory: memoryClient,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, userID uuid.UUID, req types.CreateReviewRequest) (*types.CreateReviewResponse, error) {
	ctx, span := otel.Tracer("ReviewsService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("place.id", req.PlaceID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Create"), slog.String("userID", userID.String()))

	placeID := strings.TrimSpace(req.PlaceID)
	name := strings.TrimSpace(req.Name)
	if placeID == "" || name == "" {
		return nil, ErrMissingPlace
	}
	if req.Rating == nil {
		return nil, ErrInvalidRating
	}
	rating := int(math.Round(*req.Rating))
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	activityID, err := s.repo.UpsertActivity(ctx, placeID, name)
	if err != nil {
		return nil, err
	}

	reviewID, err := s.repo.CreateReview(ctx, userID, activityID, rating, tags, strings.TrimSpace(req.Text))
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Review created", slog.String("reviewID", reviewID.String()))

	// Best-effort taste memory append, detached from the request lifecycle.
	// Failures are logged and never surfaced to the caller.
	go s.appendTasteMemory(userID, memory.TasteMemo{
		PlaceID: placeID,
		Rating:  rating,
		Tags:    tags,
		Text:    strings.TrimSpace(req.Text),
	})

	return &types.CreateReviewResponse{Ok: true, ReviewID: reviewID}, nil
}

func (s *ServiceImpl) appendTasteMemory(userID uuid.UUID, memo memory.TasteMemo) {
	ctx, cancel := context.WithTimeout(context.Background(), memoryAppendTimeout)
	defer cancel()

	handle, err := s.repo.GetUserHandle(ctx, userID)
	if err != nil || handle == nil || *handle == "" {
		return
	}

	agentID, err := s.memory.GetOrCreateTasteAgent(ctx, *handle)
	if err != nil {
		s.logger.DebugContext(ctx, "Taste agent lookup failed", slog.Any("error", err))
		return
	}
	if err := s.memory.AppendTasteMemory(ctx, agentID, memo); err != nil {
		s.logger.DebugContext(ctx, "Taste memory append failed", slog.Any("error", err))
	}
}

func (s *ServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]types.Review, error) {
	ctx, span := otel.Tracer("ReviewsService").Start(ctx, "List")
	defer span.End()

	return s.repo.GetReviewsByUserID(ctx, userID)
}

func (s *ServiceImpl) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	ctx, span := otel.Tracer("ReviewsService").Start(ctx, "Delete")
	defer span.End()

	ownerID, err := s.repo.GetReviewOwner(ctx, reviewID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return types.ErrForbidden
	}

	return s.repo.DeleteReview(ctx, reviewID)
}

package plans

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Repository = (*PostgresPlansRepo)(nil)

// Repository exposes the read-only queries the suggestion pipeline needs.
type Repository interface {
	// GetUsersByHandles resolves handles to users; unknown handles are skipped.
	GetUsersByHandles(ctx context.Context, handles []string) ([]types.PublicUser, error)

	// GetRecentReviewsByUserIDs loads the newest reviews across the given
	// users with their activity, newest first, capped at limit.
	GetRecentReviewsByUserIDs(ctx context.Context, userIDs []uuid.UUID, limit int) ([]types.ReviewWithActivity, error)
}

type PostgresPlansRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresPlansRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresPlansRepo {
	return &PostgresPlansRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresPlansRepo) GetUsersByHandles(ctx context.Context, handles []string) ([]types.PublicUser, error) {
	ctx, span := otel.Tracer("PlansRepo").Start(ctx, "GetUsersByHandles", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetUsersByHandles"))

	query := `
        SELECT id, handle, name
        FROM users
        WHERE handle = ANY($1)`

	rows, err := r.pgpool.Query(ctx, query, handles)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query users by handles", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching users by handles: %w", err)
	}
	defer rows.Close()

	var users []types.PublicUser
	for rows.Next() {
		var u types.PublicUser
		if err := rows.Scan(&u.ID, &u.Handle, &u.Name); err != nil {
			l.ErrorContext(ctx, "Failed to scan user row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading users: %w", err)
	}

	span.SetStatus(codes.Ok, "Users fetched")
	return users, nil
}

func (r *PostgresPlansRepo) GetRecentReviewsByUserIDs(ctx context.Context, userIDs []uuid.UUID, limit int) ([]types.ReviewWithActivity, error) {
	ctx, span := otel.Tracer("PlansRepo").Start(ctx, "GetRecentReviewsByUserIDs", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "reviews"),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetRecentReviewsByUserIDs"))

	query := `
        SELECT r.rating, r.tags, a.name, a.place_id
        FROM reviews r
        JOIN activities a ON a.id = r.activity_id
        WHERE r.user_id = ANY($1)
        ORDER BY r.created_at DESC
        LIMIT $2`

	rows, err := r.pgpool.Query(ctx, query, userIDs, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query recent reviews", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching recent reviews: %w", err)
	}
	defer rows.Close()

	var reviews []types.ReviewWithActivity
	for rows.Next() {
		var rv types.ReviewWithActivity
		if err := rows.Scan(&rv.Rating, &rv.Tags, &rv.ActivityName, &rv.PlaceID); err != nil {
			l.ErrorContext(ctx, "Failed to scan review row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading reviews: %w", err)
	}

	span.SetAttributes(attribute.Int("reviews.count", len(reviews)))
	span.SetStatus(codes.Ok, "Reviews fetched")
	return reviews, nil
}

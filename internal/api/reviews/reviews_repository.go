package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Repository = (*PostgresReviewsRepo)(nil)

type Repository interface {
	// UpsertActivity registers the place if unseen and refreshes its name.
	UpsertActivity(ctx context.Context, placeID, name string) (uuid.UUID, error)

	CreateReview(ctx context.Context, userID, activityID uuid.UUID, rating int, tags []string, text string) (uuid.UUID, error)
	GetReviewsByUserID(ctx context.Context, userID uuid.UUID) ([]types.Review, error)
	GetReviewOwner(ctx context.Context, reviewID uuid.UUID) (uuid.UUID, error)
	DeleteReview(ctx context.Context, reviewID uuid.UUID) error
	GetUserHandle(ctx context.Context, userID uuid.UUID) (*string, error)
}

type PostgresReviewsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresReviewsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresReviewsRepo {
	return &PostgresReviewsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresReviewsRepo) UpsertActivity(ctx context.Context, placeID, name string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "UpsertActivity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "activities"),
	))
	defer span.End()

	query := `
        INSERT INTO activities (place_id, name)
        VALUES ($1, $2)
        ON CONFLICT (place_id) DO UPDATE SET name = EXCLUDED.name
        RETURNING id`

	var id uuid.UUID
	if err := r.pgpool.QueryRow(ctx, query, placeID, name).Scan(&id); err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert activity", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return uuid.Nil, fmt.Errorf("database error upserting activity: %w", err)
	}

	span.SetStatus(codes.Ok, "Activity upserted")
	return id, nil
}

func (r *PostgresReviewsRepo) CreateReview(ctx context.Context, userID, activityID uuid.UUID, rating int, tags []string, text string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "CreateReview", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "reviews"),
	))
	defer span.End()

	query := `
        INSERT INTO reviews (user_id, activity_id, rating, tags, text)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	var id uuid.UUID
	if err := r.pgpool.QueryRow(ctx, query, userID, activityID, rating, tags, text).Scan(&id); err != nil {
		r.logger.ErrorContext(ctx, "Failed to create review", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return uuid.Nil, fmt.Errorf("database error creating review: %w", err)
	}

	span.SetStatus(codes.Ok, "Review created")
	return id, nil
}

func (r *PostgresReviewsRepo) GetReviewsByUserID(ctx context.Context, userID uuid.UUID) ([]types.Review, error) {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "GetReviewsByUserID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "reviews"),
	))
	defer span.End()

	query := `
        SELECT r.id, r.user_id, r.activity_id, r.rating, r.text, r.tags, r.created_at,
               a.id, a.place_id, a.name, a.category, a.created_at
        FROM reviews r
        JOIN activities a ON a.id = r.activity_id
        WHERE r.user_id = $1
        ORDER BY r.created_at DESC`

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching reviews: %w", err)
	}
	defer rows.Close()

	reviews := []types.Review{}
	for rows.Next() {
		var (
			rv types.Review
			a  types.Activity
		)
		if err := rows.Scan(
			&rv.ID, &rv.UserID, &rv.ActivityID, &rv.Rating, &rv.Text, &rv.Tags, &rv.CreatedAt,
			&a.ID, &a.PlaceID, &a.Name, &a.Category, &a.CreatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning review: %w", err)
		}
		rv.Activity = &a
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

func (r *PostgresReviewsRepo) GetReviewOwner(ctx context.Context, reviewID uuid.UUID) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "GetReviewOwner", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "reviews"),
	))
	defer span.End()

	var ownerID uuid.UUID
	err := r.pgpool.QueryRow(ctx, `SELECT user_id FROM reviews WHERE id = $1`, reviewID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Review not found")
			return uuid.Nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return uuid.Nil, fmt.Errorf("database error fetching review owner: %w", err)
	}

	span.SetStatus(codes.Ok, "Owner fetched")
	return ownerID, nil
}

func (r *PostgresReviewsRepo) DeleteReview(ctx context.Context, reviewID uuid.UUID) error {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "DeleteReview", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "reviews"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Review not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Review deleted")
	return nil
}

func (r *PostgresReviewsRepo) GetUserHandle(ctx context.Context, userID uuid.UUID) (*string, error) {
	ctx, span := otel.Tracer("ReviewsRepo").Start(ctx, "GetUserHandle", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var handle *string
	err := r.pgpool.QueryRow(ctx, `SELECT handle FROM users WHERE id = $1`, userID).Scan(&handle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error fetching user handle: %w", err)
	}

	span.SetStatus(codes.Ok, "Handle fetched")
	return handle, nil
}

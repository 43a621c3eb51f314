package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Repository = (*PostgresUserRepo)(nil)

type Repository interface {
	GetUserByID(ctx context.Context, userID string) (*types.User, error)

	// UpdateHandle sets the caller's handle. Returns types.ErrConflict when
	// another user already holds it.
	UpdateHandle(ctx context.Context, userID, handle string) error
}

// PGXPool is the slice of pgxpool.Pool this repository uses, small enough
// to substitute a mock in tests.
type PGXPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresUserRepo(pgpool PGXPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `
        SELECT id, handle, name, email, created_at
        FROM users
        WHERE id = $1`

	var u types.User
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Handle, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &u, nil
}

func (r *PostgresUserRepo) UpdateHandle(ctx context.Context, userID, handle string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateHandle", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `
        UPDATE users
        SET handle = $1, updated_at = NOW()
        WHERE id = $2`

	tag, err := r.pgpool.Exec(ctx, query, handle, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Handle already taken")
			return types.ErrConflict
		}
		r.logger.ErrorContext(ctx, "Failed to update handle", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error updating handle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Handle updated")
	return nil
}

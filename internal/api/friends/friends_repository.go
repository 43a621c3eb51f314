package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Repository = (*PostgresFriendsRepo)(nil)

// RequestRow is the raw friend request record without joined users.
type RequestRow struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
}

type Repository interface {
	GetUserByHandle(ctx context.Context, handle string) (*types.PublicUser, error)
	GetFriends(ctx context.Context, userID uuid.UUID) ([]types.PublicUser, error)
	GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error)
	GetSentRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error)
	AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error)

	// PendingRequestExists checks both directions between the two users.
	PendingRequestExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error)

	CreateFriendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (uuid.UUID, error)
	GetFriendRequestByID(ctx context.Context, requestID uuid.UUID) (*RequestRow, error)

	// AcceptFriendRequest creates the friendship in both directions and
	// removes the request, atomically.
	AcceptFriendRequest(ctx context.Context, requestID uuid.UUID) error

	DeleteFriendRequest(ctx context.Context, requestID uuid.UUID) error
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
}

type PostgresFriendsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresFriendsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresFriendsRepo {
	return &PostgresFriendsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresFriendsRepo) GetUserByHandle(ctx context.Context, handle string) (*types.PublicUser, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "GetUserByHandle", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `SELECT id, handle, name FROM users WHERE handle = $1`

	var u types.PublicUser
	err := r.pgpool.QueryRow(ctx, query, handle).Scan(&u.ID, &u.Handle, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user by handle: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &u, nil
}

func (r *PostgresFriendsRepo) GetFriends(ctx context.Context, userID uuid.UUID) ([]types.PublicUser, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "GetFriends", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friendships"),
	))
	defer span.End()

	query := `
        SELECT u.id, u.handle, u.name
        FROM friendships f
        JOIN users u ON u.id = f.friend_id
        WHERE f.user_id = $1
        ORDER BY u.name`

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching friends: %w", err)
	}
	defer rows.Close()

	friends := []types.PublicUser{}
	for rows.Next() {
		var u types.PublicUser
		if err := rows.Scan(&u.ID, &u.Handle, &u.Name); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning friend: %w", err)
		}
		friends = append(friends, u)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading friends: %w", err)
	}

	span.SetAttributes(attribute.Int("friends.count", len(friends)))
	span.SetStatus(codes.Ok, "Friends fetched")
	return friends, nil
}

func (r *PostgresFriendsRepo) queryRequests(ctx context.Context, query string, userID uuid.UUID) ([]types.FriendRequest, error) {
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("database error fetching friend requests: %w", err)
	}
	defer rows.Close()

	requests := []types.FriendRequest{}
	for rows.Next() {
		var fr types.FriendRequest
		if err := rows.Scan(
			&fr.ID, &fr.CreatedAt,
			&fr.Sender.ID, &fr.Sender.Handle, &fr.Sender.Name,
			&fr.Receiver.ID, &fr.Receiver.Handle, &fr.Receiver.Name,
		); err != nil {
			return nil, fmt.Errorf("database error scanning friend request: %w", err)
		}
		requests = append(requests, fr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading friend requests: %w", err)
	}
	return requests, nil
}

func (r *PostgresFriendsRepo) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "GetPendingRequests", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	query := `
        SELECT fr.id, fr.created_at,
               s.id, s.handle, s.name,
               rcv.id, rcv.handle, rcv.name
        FROM friend_requests fr
        JOIN users s ON s.id = fr.sender_id
        JOIN users rcv ON rcv.id = fr.receiver_id
        WHERE fr.receiver_id = $1
        ORDER BY fr.created_at DESC`

	requests, err := r.queryRequests(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Pending requests fetched")
	return requests, nil
}

func (r *PostgresFriendsRepo) GetSentRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "GetSentRequests", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	query := `
        SELECT fr.id, fr.created_at,
               s.id, s.handle, s.name,
               rcv.id, rcv.handle, rcv.name
        FROM friend_requests fr
        JOIN users s ON s.id = fr.sender_id
        JOIN users rcv ON rcv.id = fr.receiver_id
        WHERE fr.sender_id = $1
        ORDER BY fr.created_at DESC`

	requests, err := r.queryRequests(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Sent requests fetched")
	return requests, nil
}

func (r *PostgresFriendsRepo) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "AreFriends", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friendships"),
	))
	defer span.End()

	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`

	var exists bool
	if err := r.pgpool.QueryRow(ctx, query, userID, otherID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking friendship: %w", err)
	}
	span.SetStatus(codes.Ok, "Friendship checked")
	return exists, nil
}

func (r *PostgresFriendsRepo) PendingRequestExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "PendingRequestExists", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	query := `
        SELECT EXISTS(
            SELECT 1 FROM friend_requests
            WHERE (sender_id = $1 AND receiver_id = $2)
               OR (sender_id = $2 AND receiver_id = $1)
        )`

	var exists bool
	if err := r.pgpool.QueryRow(ctx, query, userID, otherID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking pending request: %w", err)
	}
	span.SetStatus(codes.Ok, "Pending request checked")
	return exists, nil
}

func (r *PostgresFriendsRepo) CreateFriendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (uuid.UUID, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "CreateFriendRequest", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	query := `
        INSERT INTO friend_requests (sender_id, receiver_id)
        VALUES ($1, $2)
        RETURNING id`

	var id uuid.UUID
	if err := r.pgpool.QueryRow(ctx, query, senderID, receiverID).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Duplicate request")
			return uuid.Nil, types.ErrConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return uuid.Nil, fmt.Errorf("database error creating friend request: %w", err)
	}

	span.SetStatus(codes.Ok, "Friend request created")
	return id, nil
}

func (r *PostgresFriendsRepo) GetFriendRequestByID(ctx context.Context, requestID uuid.UUID) (*RequestRow, error) {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "GetFriendRequestByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	query := `SELECT id, sender_id, receiver_id FROM friend_requests WHERE id = $1`

	var row RequestRow
	err := r.pgpool.QueryRow(ctx, query, requestID).Scan(&row.ID, &row.SenderID, &row.ReceiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Request not found")
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching friend request: %w", err)
	}

	span.SetStatus(codes.Ok, "Friend request fetched")
	return &row, nil
}

func (r *PostgresFriendsRepo) AcceptFriendRequest(ctx context.Context, requestID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "AcceptFriendRequest", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friendships"),
	))
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var senderID, receiverID uuid.UUID
	err = tx.QueryRow(ctx,
		`DELETE FROM friend_requests WHERE id = $1 RETURNING sender_id, receiver_id`,
		requestID,
	).Scan(&senderID, &receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Request not found")
			return types.ErrNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("database error deleting friend request: %w", err)
	}

	// One row per direction keeps friend list queries trivial.
	_, err = tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1)
         ON CONFLICT (user_id, friend_id) DO NOTHING`,
		senderID, receiverID,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error creating friendship: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "Friend request accepted")
	return nil
}

func (r *PostgresFriendsRepo) DeleteFriendRequest(ctx context.Context, requestID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "DeleteFriendRequest", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friend_requests"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Request not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Friend request deleted")
	return nil
}

func (r *PostgresFriendsRepo) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	ctx, span := otel.Tracer("FriendsRepo").Start(ctx, "RemoveFriend", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "friendships"),
	))
	defer span.End()

	query := `
        DELETE FROM friendships
        WHERE (user_id = $1 AND friend_id = $2)
           OR (user_id = $2 AND friend_id = $1)`

	tag, err := r.pgpool.Exec(ctx, query, userID, friendID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error removing friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Friendship not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Friend removed")
	return nil
}

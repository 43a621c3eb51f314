package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/plansapp/go-plans-api/config"
	"github.com/plansapp/go-plans-api/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo defines the contract for authentication persistence and token issuance.
type AuthRepo interface {
	Register(ctx context.Context, name, email, password string) (uuid.UUID, error)
	Login(ctx context.Context, email, password string) (string, string, error)
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
	jwtCfg config.JWTConfig
}

func NewPostgresAuthRepo(pgpool *pgxpool.Pool, jwtCfg config.JWTConfig, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
		jwtCfg: jwtCfg,
	}
}

// generateRefreshToken creates a random refresh token.
func generateRefreshToken() string {
	return uuid.NewString()
}

func (r *PostgresAuthRepo) generateAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    r.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{r.jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.jwtCfg.AccessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.jwtCfg.SecretKey))
}

// Register creates a new user with a bcrypt-hashed password.
func (r *PostgresAuthRepo) Register(ctx context.Context, name, email, password string) (uuid.UUID, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var userID uuid.UUID
	err = r.pgpool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
         ON CONFLICT (email) DO NOTHING
         RETURNING id`,
		name, email, string(hashedPassword)).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, types.ErrConflict
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("database error registering user: %w", err)
	}
	return userID, nil
}

// Login authenticates a user and returns access and refresh tokens.
func (r *PostgresAuthRepo) Login(ctx context.Context, email, password string) (string, string, error) {
	var (
		userID       uuid.UUID
		userEmail    string
		passwordHash string
	)
	err := r.pgpool.QueryRow(ctx,
		"SELECT id, email, password_hash FROM users WHERE email = $1",
		email).Scan(&userID, &userEmail, &passwordHash)
	if err != nil {
		return "", "", fmt.Errorf("user not found: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if err != nil {
		return "", "", errors.New("invalid credentials")
	}

	accessToken, err := r.generateAccessToken(userID, userEmail)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken := generateRefreshToken()
	expiresAt := time.Now().Add(r.jwtCfg.RefreshTTL)
	_, err = r.pgpool.Exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
		userID, newRefreshToken, expiresAt)
	if err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, newRefreshToken, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
func (r *PostgresAuthRepo) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	var (
		tokenID       uuid.UUID
		userID        uuid.UUID
		expiresAt     time.Time
		invalidatedAt *time.Time
	)
	err := r.pgpool.QueryRow(ctx,
		"SELECT id, user_id, expires_at, invalidated_at FROM refresh_tokens WHERE token = $1",
		refreshToken).Scan(&tokenID, &userID, &expiresAt, &invalidatedAt)
	if err != nil {
		return "", "", errors.New("refresh token not found")
	}
	if time.Now().After(expiresAt) || invalidatedAt != nil {
		return "", "", errors.New("refresh token expired or invalidated")
	}

	var email string
	err = r.pgpool.QueryRow(ctx, "SELECT email FROM users WHERE id = $1", userID).Scan(&email)
	if err != nil {
		return "", "", errors.New("user not found")
	}

	accessToken, err := r.generateAccessToken(userID, email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken := generateRefreshToken()
	newExpiresAt := time.Now().Add(r.jwtCfg.RefreshTTL)

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, "UPDATE refresh_tokens SET invalidated_at = now() WHERE id = $1", tokenID)
	if err != nil {
		return "", "", fmt.Errorf("failed to invalidate old refresh token: %w", err)
	}
	_, err = tx.Exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
		userID, newRefreshToken, newExpiresAt)
	if err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return "", "", fmt.Errorf("failed to commit refresh rotation: %w", err)
	}

	return accessToken, newRefreshToken, nil
}

// Logout invalidates a single refresh token.
func (r *PostgresAuthRepo) Logout(ctx context.Context, refreshToken string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE refresh_tokens SET invalidated_at = now() WHERE token = $1 AND invalidated_at IS NULL",
		refreshToken)
	if err != nil {
		return fmt.Errorf("failed to invalidate refresh token: %w", err)
	}
	return nil
}

// InvalidateAllUserRefreshTokens revokes every live refresh token for a user.
func (r *PostgresAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE refresh_tokens SET invalidated_at = now() WHERE user_id = $1 AND invalidated_at IS NULL",
		userID)
	if err != nil {
		return fmt.Errorf("failed to invalidate refresh tokens: %w", err)
	}
	return nil
}

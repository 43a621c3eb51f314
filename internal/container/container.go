package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plansapp/go-plans-api/config"
	"github.com/plansapp/go-plans-api/internal/api/auth"
	"github.com/plansapp/go-plans-api/internal/api/friends"
	generativeAI "github.com/plansapp/go-plans-api/internal/api/generative_ai"
	"github.com/plansapp/go-plans-api/internal/api/maps"
	"github.com/plansapp/go-plans-api/internal/api/memory"
	"github.com/plansapp/go-plans-api/internal/api/plans"
	"github.com/plansapp/go-plans-api/internal/api/reviews"
	"github.com/plansapp/go-plans-api/internal/api/user"
)

// Container wires repositories, services and handlers together.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	AuthHandler    *auth.AuthHandler
	UserHandler    *user.Handler
	FriendsHandler *friends.Handler
	ReviewsHandler *reviews.Handler
	PlansHandler   *plans.Handler
}

func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*Container, error) {
	// Providers.
	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model)
	if err != nil {
		return nil, err
	}
	mapsClient := maps.NewGoogleClient(cfg.Providers.Maps, logger)
	memoryClient := memory.NewHTTPClient(cfg.Providers.Memory, logger)

	// Repositories.
	authRepo := auth.NewPostgresAuthRepo(pool, cfg.JWT, logger)
	userRepo := user.NewPostgresUserRepo(pool, logger)
	friendsRepo := friends.NewPostgresFriendsRepo(pool, logger)
	reviewsRepo := reviews.NewPostgresReviewsRepo(pool, logger)
	plansRepo := plans.NewPostgresPlansRepo(pool, logger)

	// Services.
	authService := auth.NewAuthService(authRepo, logger)
	userService := user.NewUserService(userRepo, logger)
	friendsService := friends.NewFriendsService(friendsRepo, logger)
	reviewsService := reviews.NewReviewsService(reviewsRepo, memoryClient, logger)

	generator := plans.NewSuggestionGenerator(aiClient, logger)
	enricher := plans.NewEnricher(mapsClient, cfg.Providers.Maps.DefaultCity, logger)
	plansService := plans.NewPlansService(plansRepo, generator, enricher, logger)

	return &Container{
		Config: cfg,
		Logger: logger,

		AuthHandler:    auth.NewAuthHandler(authService, logger),
		UserHandler:    user.NewHandler(userService, logger),
		FriendsHandler: friends.NewHandler(friendsService, logger),
		ReviewsHandler: reviews.NewHandler(reviewsService, logger),
		PlansHandler:   plans.NewHandler(plansService, logger),
	}, nil
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/plansapp/go-plans-api/internal/api/auth"
	"github.com/plansapp/go-plans-api/internal/api/friends"
	"github.com/plansapp/go-plans-api/internal/api/plans"
	"github.com/plansapp/go-plans-api/internal/api/reviews"
	"github.com/plansapp/go-plans-api/internal/api/user"
)

// Config contains the dependencies needed for router setup. Server-wide
// middleware (request ID, logging, recoverer) is applied in main before
// this router is mounted.
type Config struct {
	AuthHandler    *auth.AuthHandler
	UserHandler    *user.Handler
	FriendsHandler *friends.Handler
	ReviewsHandler *reviews.Handler
	PlansHandler   *plans.Handler

	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
		})

		// Everything else requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)

			r.Get("/user/me", cfg.UserHandler.GetMe)
			r.Post("/user/handle", cfg.UserHandler.UpdateHandle)
			r.Get("/user/check-handle", cfg.UserHandler.CheckHandle)

			r.Get("/friends", cfg.FriendsHandler.List)
			r.Post("/friends/request", cfg.FriendsHandler.SendRequest)
			r.Post("/friends/request/{requestID}/accept", cfg.FriendsHandler.AcceptRequest)
			r.Post("/friends/request/{requestID}/reject", cfg.FriendsHandler.RejectRequest)
			r.Delete("/friends/{friendID}", cfg.FriendsHandler.RemoveFriend)

			r.Post("/reviews", cfg.ReviewsHandler.Create)
			r.Get("/reviews", cfg.ReviewsHandler.List)
			r.Delete("/reviews/{reviewID}", cfg.ReviewsHandler.Delete)

			r.Post("/plans/suggest", cfg.PlansHandler.Suggest)
			r.Post("/plans/feed", cfg.PlansHandler.Feed)
		})
	})

	return r
}

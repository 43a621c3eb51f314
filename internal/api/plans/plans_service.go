package plans

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service are the two planning orchestrators. Neither ever returns a nil
// response: partial provider failures degrade the payload instead.
type Service interface {
	Suggest(ctx context.Context, req types.SuggestRequest) (*types.SuggestResponse, error)
	Feed(ctx context.Context, req types.FeedRequest) (*types.FeedResponse, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	generator *SuggestionGenerator
	enricher  *Enricher
}

func NewPlansService(repo Repository, generator *SuggestionGenerator, enricher *Enricher, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		generator: generator,
		enricher:  enricher,
	}
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// dedupeHandles keeps first occurrences of non-blank handles.
func dedupeHandles(handles []string) []string {
	seen := make(map[string]bool, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Suggest plans an outing for the requester and their companions. Unknown
// handles are dropped; if nobody resolves, the call succeeds with an empty
// suggestion list rather than failing.
func (s *ServiceImpl) Suggest(ctx context.Context, req types.SuggestRequest) (*types.SuggestResponse, error) {
	ctx, span := otel.Tracer("PlansService").Start(ctx, "Suggest", trace.WithAttributes(
		attribute.Int("companions.count", len(req.Companions)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Suggest"))

	handles := dedupeHandles(append([]string{req.Handle}, req.Companions...))

	coords := req.Coords
	if !finiteCoords(coords) {
		coords = nil
	}
	origin, resolvedCity := s.enricher.ResolveOrigin(ctx, coords, req.City, false)

	resp := &types.SuggestResponse{
		Ok:          true,
		Group:       []string{},
		City:        strPtrOrNil(resolvedCity),
		Coords:      origin,
		BudgetMax:   req.BudgetMax,
		TopTags:     []string{},
		Liked:       []types.LikedVenue{},
		Suggestions: []types.Suggestion{},
	}

	users, err := s.repo.GetUsersByHandles(ctx, handles)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve group, proceeding without personalization", slog.Any("error", err))
		span.RecordError(err)
		users = nil
	}
	if len(users) == 0 {
		l.InfoContext(ctx, "No users resolved for suggest request", slog.Any("handles", handles))
		return resp, nil
	}

	group := make([]string, 0, len(users))
	userIDs := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u.Handle != nil {
			group = append(group, *u.Handle)
		}
		userIDs = append(userIDs, u.ID)
	}
	resp.Group = group

	profile := types.TasteProfile{TopTags: []string{}, Liked: []types.LikedVenue{}}
	reviews, err := s.repo.GetRecentReviewsByUserIDs(ctx, userIDs, recentReviewLimit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load recent reviews, using empty taste profile", slog.Any("error", err))
		span.RecordError(err)
	} else {
		profile = buildTasteProfile(reviews)
	}
	resp.TopTags = profile.TopTags
	resp.Liked = profile.Liked

	suggestions := s.generator.ForSuggest(ctx, GenerateInput{
		Group:     group,
		City:      resolvedCity,
		BudgetMax: req.BudgetMax,
		Occasion:  req.Occasion,
		Profile:   profile,
	})

	resp.Suggestions = s.enricher.Enrich(ctx, suggestions, EnrichOptions{
		City:      resolvedCity,
		Origin:    origin,
		BudgetMax: req.BudgetMax,
		Radius:    suggestRadiusMeters,
		PlaceCap:  suggestPlaceCap,
	})

	span.SetAttributes(
		attribute.Int("group.size", len(group)),
		attribute.Int("suggestions.count", len(resp.Suggestions)),
	)
	return resp, nil
}

// Feed builds the passive discovery feed. When generation fails completely
// the response still carries the enriched static fallbacks, with Ok false so
// the handler can signal the failure.
func (s *ServiceImpl) Feed(ctx context.Context, req types.FeedRequest) (*types.FeedResponse, error) {
	ctx, span := otel.Tracer("PlansService").Start(ctx, "Feed")
	defer span.End()

	l := s.logger.With(slog.String("method", "Feed"))

	coords := req.Coords
	if !finiteCoords(coords) {
		coords = nil
	}
	origin, resolvedCity := s.enricher.ResolveOrigin(ctx, coords, req.City, true)

	var (
		profile = types.TasteProfile{TopTags: []string{}, Liked: []types.LikedVenue{}}
		group   []string
	)
	if handle := strings.TrimSpace(req.Handle); handle != "" {
		users, err := s.repo.GetUsersByHandles(ctx, []string{handle})
		if err != nil {
			l.WarnContext(ctx, "Failed to resolve feed user, skipping personalization", slog.Any("error", err))
		} else if len(users) > 0 {
			group = []string{handle}
			reviews, err := s.repo.GetRecentReviewsByUserIDs(ctx, []uuid.UUID{users[0].ID}, recentReviewLimit)
			if err != nil {
				l.WarnContext(ctx, "Failed to load reviews for feed, skipping personalization", slog.Any("error", err))
			} else {
				profile = buildTasteProfile(reviews)
			}
		}
	}

	ok := true
	errMsg := ""
	suggestions, err := s.generator.ForFeed(ctx, GenerateInput{
		Group:     group,
		City:      resolvedCity,
		BudgetMax: req.BudgetMax,
		Occasion:  req.Occasion,
		Profile:   profile,
	})
	if err != nil {
		l.ErrorContext(ctx, "Feed generation failed, serving static fallbacks", slog.Any("error", err))
		span.RecordError(err)
		suggestions = fallbackSuggestions()
		ok = false
		errMsg = "Failed to generate feed"
	}

	enriched := s.enricher.Enrich(ctx, suggestions, EnrichOptions{
		City:      resolvedCity,
		Origin:    origin,
		BudgetMax: req.BudgetMax,
		Radius:    feedRadiusMeters,
		PlaceCap:  feedPlaceCap,
	})

	span.SetAttributes(
		attribute.Bool("feed.ok", ok),
		attribute.Int("suggestions.count", len(enriched)),
	)
	return &types.FeedResponse{
		Ok:          ok,
		City:        strPtrOrNil(resolvedCity),
		Coords:      origin,
		BudgetMax:   req.BudgetMax,
		Suggestions: enriched,
		Error:       errMsg,
	}, nil
}

package plans

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/plansapp/go-plans-api/app/observability/metrics"
	"github.com/plansapp/go-plans-api/internal/api/maps"
	"github.com/plansapp/go-plans-api/internal/types"
)

const (
	suggestRadiusMeters = 6000
	suggestPlaceCap     = 1
	feedRadiusMeters    = 8000
	feedPlaceCap        = 3

	enrichConcurrency  = 4
	placeLookupTimeout = 10 * time.Second
)

// EnrichOptions are the per-route enrichment knobs.
type EnrichOptions struct {
	City      string
	Origin    *types.Coords
	BudgetMax *float64
	Radius    int
	PlaceCap  int
}

// Enricher attaches real venues to generated suggestions. Lookups never fail
// a request: a dead provider leaves a suggestion with an empty places list.
type Enricher struct {
	maps        maps.Client
	logger      *slog.Logger
	metrics     *metrics.AppMetrics
	defaultCity string
}

func NewEnricher(mapsClient maps.Client, defaultCity string, logger *slog.Logger) *Enricher {
	metrics.InitAppMetrics()
	return &Enricher{
		maps:        mapsClient,
		logger:      logger,
		metrics:     metrics.Get(),
		defaultCity: defaultCity,
	}
}

// priceTier maps a per-person budget to the provider's 1..4 price levels.
func priceTier(budgetMax *float64) *int {
	if budgetMax == nil {
		return nil
	}
	var tier int
	switch b := *budgetMax; {
	case b <= 20:
		tier = 1
	case b <= 50:
		tier = 2
	case b <= 80:
		tier = 3
	default:
		tier = 4
	}
	return &tier
}

// fallbackQueryForTitle derives a search query from the suggestion title when
// the generator did not supply one.
func fallbackQueryForTitle(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "brunch"):
		return "brunch restaurants"
	case strings.Contains(t, "coffee"):
		return "coffee shops"
	case strings.Contains(t, "walk"), strings.Contains(t, "scenic"):
		return "scenic walking spots"
	case strings.Contains(t, "museum"):
		return "museums and galleries"
	case strings.Contains(t, "dessert"):
		return "dessert shops"
	case strings.Contains(t, "book"):
		return "bookstores"
	case strings.Contains(t, "music"):
		return "live music venues"
	case strings.Contains(t, "arcade"):
		return "arcade bar"
	case strings.Contains(t, "bowling"):
		return "bowling alleys"
	case strings.Contains(t, "pizza"):
		return "pizza restaurants"
	case strings.Contains(t, "taco"):
		return "taco spots"
	default:
		return "interesting places"
	}
}

// buildSearchQuery picks the generator's query or the title-derived fallback
// and anchors it to the resolved city.
func buildSearchQuery(s types.Suggestion, city string) string {
	query := strings.TrimSpace(s.Query)
	if query == "" {
		query = fallbackQueryForTitle(s.Title)
	}
	if city != "" {
		query += " in " + city
	}
	return query
}

func finiteCoords(c *types.Coords) bool {
	if c == nil {
		return false
	}
	for _, v := range []float64{c.Lat, c.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ResolveOrigin settles where to search: explicit coordinates win, then the
// named city geocoded, then the configured default city when the caller gave
// nothing and the route wants a bias. A failed geocode leaves the origin nil
// and lets the query's city suffix do the anchoring.
func (e *Enricher) ResolveOrigin(ctx context.Context, coords *types.Coords, city string, useDefaultCity bool) (*types.Coords, string) {
	resolvedCity := strings.TrimSpace(city)
	if resolvedCity == "" && useDefaultCity {
		resolvedCity = e.defaultCity
	}

	if finiteCoords(coords) {
		return coords, resolvedCity
	}
	if resolvedCity == "" {
		return nil, ""
	}

	origin, err := e.maps.GeocodeCity(ctx, resolvedCity)
	if err != nil {
		e.logger.WarnContext(ctx, "Geocode failed, searching without origin",
			slog.String("city", resolvedCity), slog.Any("error", err))
		return nil, resolvedCity
	}
	return origin, resolvedCity
}

// Enrich looks up places for every suggestion concurrently, preserving
// order. Per-item failures degrade that item to an empty places list.
func (e *Enricher) Enrich(ctx context.Context, suggestions []types.Suggestion, opts EnrichOptions) []types.Suggestion {
	if len(suggestions) == 0 {
		return suggestions
	}

	out := make([]types.Suggestion, len(suggestions))
	copy(out, suggestions)

	maxPrice := priceTier(opts.BudgetMax)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			s := &out[i]
			query := buildSearchQuery(*s, opts.City)

			lctx, cancel := context.WithTimeout(gctx, placeLookupTimeout)
			defer cancel()

			e.metrics.PlaceLookupsTotal.Add(lctx, 1,
				otelmetric.WithAttributes(attribute.Int("place_cap", opts.PlaceCap)))

			places, err := e.maps.SearchText(lctx, maps.SearchArgs{
				Query:    query,
				Location: opts.Origin,
				Radius:   opts.Radius,
				MaxPrice: maxPrice,
				Limit:    opts.PlaceCap,
			})
			if err != nil {
				e.logger.WarnContext(lctx, "Place lookup failed",
					slog.String("query", query), slog.Any("error", err))
				e.metrics.PlaceLookupErrorsTotal.Add(lctx, 1)
				s.Places = []types.Place{}
				return nil
			}
			if len(places) > opts.PlaceCap {
				places = places[:opts.PlaceCap]
			}
			if places == nil {
				places = []types.Place{}
			}
			s.Places = places
			return nil
		})
	}
	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	return out
}

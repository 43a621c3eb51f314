package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/plansapp/go-plans-api/config"
	"github.com/plansapp/go-plans-api/internal/types"
)

var _ Client = (*GoogleClient)(nil)

// Client is the places provider contract: city geocoding and text search.
type Client interface {
	GeocodeCity(ctx context.Context, city string) (*types.Coords, error)
	SearchText(ctx context.Context, args SearchArgs) ([]types.Place, error)
}

// SearchArgs parameterizes one text search.
type SearchArgs struct {
	Query    string
	Location *types.Coords
	Radius   int
	MaxPrice *int
	Limit    int
}

// GoogleClient calls the Google Maps web service endpoints directly.
// A missing API key degrades every call to an empty result, matching the
// behavior the rest of the pipeline expects from an absent provider.
type GoogleClient struct {
	logger       *slog.Logger
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	geocodeCache *cache.Cache
}

func NewGoogleClient(cfg config.MapsConfig, logger *slog.Logger) *GoogleClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	geocodeTTL := cfg.GeocodeTTL
	if geocodeTTL <= 0 {
		geocodeTTL = 24 * time.Hour
	}
	return &GoogleClient{
		logger:       logger,
		httpClient:   &http.Client{Timeout: timeout},
		apiKey:       cfg.APIKey,
		baseURL:      "https://maps.googleapis.com",
		geocodeCache: cache.New(geocodeTTL, 1*time.Hour),
	}
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// GeocodeCity resolves a city name to coordinates, or nil when the city is
// unknown or no API key is configured. Results are cached.
func (c *GoogleClient) GeocodeCity(ctx context.Context, city string) (*types.Coords, error) {
	if c.apiKey == "" || city == "" {
		return nil, nil
	}
	if cached, ok := c.geocodeCache.Get(city); ok {
		coords := cached.(types.Coords)
		return &coords, nil
	}

	q := url.Values{}
	q.Set("address", city)
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/maps/api/geocode/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(body.Results) == 0 {
		c.logger.DebugContext(ctx, "Geocode returned no results", slog.String("city", city), slog.String("status", body.Status))
		return nil, nil
	}

	coords := types.Coords{
		Lat: body.Results[0].Geometry.Location.Lat,
		Lng: body.Results[0].Geometry.Location.Lng,
	}
	c.geocodeCache.SetDefault(city, coords)
	return &coords, nil
}

type textSearchResponse struct {
	Results []struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		Rating           *float64 `json:"rating"`
		PriceLevel       *int     `json:"price_level"`
		FormattedAddress *string  `json:"formatted_address"`
		Geometry         *struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Types []string `json:"types"`
	} `json:"results"`
	Status string `json:"status"`
}

// SearchText runs a Places text search and maps the first Limit results.
func (c *GoogleClient) SearchText(ctx context.Context, args SearchArgs) ([]types.Place, error) {
	if c.apiKey == "" {
		return []types.Place{}, nil
	}

	radius := args.Radius
	if radius <= 0 {
		radius = 6000
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 3
	}

	q := url.Values{}
	q.Set("query", args.Query)
	q.Set("key", c.apiKey)
	q.Set("radius", strconv.Itoa(radius))
	if args.Location != nil {
		q.Set("location", fmt.Sprintf("%f,%f", args.Location.Lat, args.Location.Lng))
	}
	if args.MaxPrice != nil {
		q.Set("maxprice", strconv.Itoa(*args.MaxPrice))
	}
	endpoint := c.baseURL + "/maps/api/place/textsearch/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build text search request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("text search returned status %d", resp.StatusCode)
	}

	var body textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode text search response: %w", err)
	}

	places := make([]types.Place, 0, limit)
	for _, r := range body.Results {
		if len(places) >= limit {
			break
		}
		place := types.Place{
			PlaceID:    r.PlaceID,
			Name:       r.Name,
			Address:    r.FormattedAddress,
			Rating:     r.Rating,
			PriceLevel: r.PriceLevel,
			Types:      r.Types,
		}
		if r.Geometry != nil {
			place.Location = &types.Coords{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			}
		}
		places = append(places, place)
	}
	return places, nil
}

package plans

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansapp/go-plans-api/internal/api/maps"
	"github.com/plansapp/go-plans-api/internal/types"
)

type fakeMapsClient struct {
	mu          sync.Mutex
	geocode     *types.Coords
	geocodeErr  error
	geocoded    []string
	searchFn    func(args maps.SearchArgs) ([]types.Place, error)
	searchCalls []maps.SearchArgs
}

func (f *fakeMapsClient) GeocodeCity(ctx context.Context, city string) (*types.Coords, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geocoded = append(f.geocoded, city)
	return f.geocode, f.geocodeErr
}

func (f *fakeMapsClient) SearchText(ctx context.Context, args maps.SearchArgs) ([]types.Place, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, args)
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(args)
	}
	return []types.Place{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func float64Ptr(v float64) *float64 { return &v }

func TestPriceTier(t *testing.T) {
	assert.Nil(t, priceTier(nil))

	tests := []struct {
		budget float64
		want   int
	}{
		{15, 1},
		{20, 1},
		{35, 2},
		{50, 2},
		{80, 3},
		{200, 4},
	}
	for _, tt := range tests {
		got := priceTier(float64Ptr(tt.budget))
		require.NotNil(t, got)
		assert.Equal(t, tt.want, *got, "budget %v", tt.budget)
	}
}

func TestFallbackQueryForTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Weekend Brunch Club", "brunch restaurants"},
		{"Coffee shop adventure", "coffee shops"},
		{"Scenic city walk", "scenic walking spots"},
		{"Night at the museum", "museums and galleries"},
		{"Dessert crawl", "dessert shops"},
		{"Bookstore afternoon", "bookstores"},
		{"Live music night", "live music venues"},
		{"Arcade throwback", "arcade bar"},
		{"Bowling showdown", "bowling alleys"},
		{"Pizza tour", "pizza restaurants"},
		{"Taco tuesday", "taco spots"},
		{"Something completely different", "interesting places"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fallbackQueryForTitle(tt.title), "title %q", tt.title)
	}
}

func TestBuildSearchQuery(t *testing.T) {
	s := types.Suggestion{Title: "Arcade night", Query: "retro arcade"}
	assert.Equal(t, "retro arcade in Austin", buildSearchQuery(s, "Austin"))

	// No generator query: derive from the title, keep the city anchor.
	s.Query = ""
	got := buildSearchQuery(s, "Austin")
	assert.Contains(t, got, "arcade")
	assert.Contains(t, got, "Austin")

	assert.Equal(t, "retro arcade", buildSearchQuery(types.Suggestion{Title: "X", Query: "retro arcade"}, ""))
}

func TestResolveOrigin_CoordsWin(t *testing.T) {
	fake := &fakeMapsClient{geocode: &types.Coords{Lat: 1, Lng: 2}}
	e := NewEnricher(fake, "San Francisco", testLogger())

	coords := &types.Coords{Lat: 38.7, Lng: -9.1}
	origin, city := e.ResolveOrigin(context.Background(), coords, "Lisbon", false)

	assert.Equal(t, coords, origin)
	assert.Equal(t, "Lisbon", city)
	assert.Empty(t, fake.geocoded, "explicit coords must skip geocoding")
}

func TestResolveOrigin_GeocodesCity(t *testing.T) {
	fake := &fakeMapsClient{geocode: &types.Coords{Lat: 38.72, Lng: -9.14}}
	e := NewEnricher(fake, "San Francisco", testLogger())

	origin, city := e.ResolveOrigin(context.Background(), nil, " Lisbon ", false)

	require.NotNil(t, origin)
	assert.Equal(t, 38.72, origin.Lat)
	assert.Equal(t, "Lisbon", city)
	assert.Equal(t, []string{"Lisbon"}, fake.geocoded)
}

func TestResolveOrigin_DefaultCityOnlyWhenAsked(t *testing.T) {
	fake := &fakeMapsClient{geocode: &types.Coords{Lat: 37.77, Lng: -122.42}}
	e := NewEnricher(fake, "San Francisco", testLogger())

	origin, city := e.ResolveOrigin(context.Background(), nil, "", true)
	require.NotNil(t, origin)
	assert.Equal(t, "San Francisco", city)

	origin, city = e.ResolveOrigin(context.Background(), nil, "", false)
	assert.Nil(t, origin)
	assert.Empty(t, city)
}

func TestResolveOrigin_GeocodeFailureKeepsCity(t *testing.T) {
	fake := &fakeMapsClient{geocodeErr: fmt.Errorf("quota exceeded")}
	e := NewEnricher(fake, "San Francisco", testLogger())

	origin, city := e.ResolveOrigin(context.Background(), nil, "Lisbon", false)

	assert.Nil(t, origin)
	assert.Equal(t, "Lisbon", city)
}

func TestEnrich_CapAndOrder(t *testing.T) {
	fake := &fakeMapsClient{
		searchFn: func(args maps.SearchArgs) ([]types.Place, error) {
			places := make([]types.Place, 5)
			for i := range places {
				places[i] = types.Place{PlaceID: fmt.Sprintf("%s-%d", args.Query, i), Name: args.Query}
			}
			return places, nil
		},
	}
	e := NewEnricher(fake, "San Francisco", testLogger())

	in := []types.Suggestion{
		{Title: "First", Query: "alpha"},
		{Title: "Second", Query: "beta"},
		{Title: "Third", Query: "gamma"},
	}
	out := e.Enrich(context.Background(), in, EnrichOptions{
		City:     "Lisbon",
		Radius:   feedRadiusMeters,
		PlaceCap: feedPlaceCap,
	})

	require.Len(t, out, 3)
	assert.Equal(t, "First", out[0].Title)
	assert.Equal(t, "Third", out[2].Title)
	for _, s := range out {
		assert.Len(t, s.Places, feedPlaceCap)
	}
	// Input untouched.
	assert.Nil(t, in[0].Places)
}

func TestEnrich_PerItemFailureIsolated(t *testing.T) {
	fake := &fakeMapsClient{
		searchFn: func(args maps.SearchArgs) ([]types.Place, error) {
			if strings.Contains(args.Query, "beta") {
				return nil, fmt.Errorf("provider exploded")
			}
			return []types.Place{{PlaceID: "p", Name: "Place"}}, nil
		},
	}
	e := NewEnricher(fake, "San Francisco", testLogger())

	out := e.Enrich(context.Background(), []types.Suggestion{
		{Title: "A", Query: "alpha"},
		{Title: "B", Query: "beta"},
		{Title: "C", Query: "gamma"},
	}, EnrichOptions{PlaceCap: suggestPlaceCap, Radius: suggestRadiusMeters})

	require.Len(t, out, 3)
	assert.Len(t, out[0].Places, 1)
	assert.NotNil(t, out[1].Places)
	assert.Empty(t, out[1].Places)
	assert.Len(t, out[2].Places, 1)
}

func TestEnrich_PassesBudgetAndOrigin(t *testing.T) {
	fake := &fakeMapsClient{}
	e := NewEnricher(fake, "San Francisco", testLogger())

	origin := &types.Coords{Lat: 1, Lng: 2}
	e.Enrich(context.Background(), []types.Suggestion{{Title: "A", Query: "alpha"}}, EnrichOptions{
		City:      "Lisbon",
		Origin:    origin,
		BudgetMax: float64Ptr(45),
		Radius:    suggestRadiusMeters,
		PlaceCap:  suggestPlaceCap,
	})

	require.Len(t, fake.searchCalls, 1)
	call := fake.searchCalls[0]
	assert.Equal(t, origin, call.Location)
	assert.Equal(t, suggestRadiusMeters, call.Radius)
	assert.Equal(t, suggestPlaceCap, call.Limit)
	require.NotNil(t, call.MaxPrice)
	assert.Equal(t, 2, *call.MaxPrice)
}

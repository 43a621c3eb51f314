package maps

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansapp/go-plans-api/config"
	"github.com/plansapp/go-plans-api/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) (*GoogleClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewGoogleClient(config.MapsConfig{APIKey: apiKey}, slog.New(slog.DiscardHandler))
	c.baseURL = srv.URL
	return c, srv
}

func TestGeocodeCity_NoAPIKeyDegradesToNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an API key")
	}, "")

	coords, err := c.GeocodeCity(context.Background(), "Lisbon")
	require.NoError(t, err)
	assert.Nil(t, coords)
}

func TestGeocodeCity_ParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "Lisbon", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":38.7223,"lng":-9.1393}}}]}`))
	}, "test-key")

	coords, err := c.GeocodeCity(context.Background(), "Lisbon")
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.InDelta(t, 38.7223, coords.Lat, 1e-9)
	assert.InDelta(t, -9.1393, coords.Lng, 1e-9)

	// Second lookup is served from cache.
	coords2, err := c.GeocodeCity(context.Background(), "Lisbon")
	require.NoError(t, err)
	require.NotNil(t, coords2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocodeCity_NoResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}, "test-key")

	coords, err := c.GeocodeCity(context.Background(), "Nowhereville")
	require.NoError(t, err)
	assert.Nil(t, coords)
}

func TestSearchText_MapsResultsAndLimits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "coffee in Lisbon", q.Get("query"))
		assert.Equal(t, "6000", q.Get("radius"))
		assert.Equal(t, "2", q.Get("maxprice"))
		w.Write([]byte(`{"status":"OK","results":[
            {"place_id":"p1","name":"A","rating":4.5,"price_level":2,"formatted_address":"Rua A","geometry":{"location":{"lat":1,"lng":2}},"types":["cafe"]},
            {"place_id":"p2","name":"B"},
            {"place_id":"p3","name":"C"}
        ]}`))
	}, "test-key")

	maxPrice := 2
	places, err := c.SearchText(context.Background(), SearchArgs{
		Query:    "coffee in Lisbon",
		Location: &types.Coords{Lat: 38.7, Lng: -9.1},
		Radius:   6000,
		MaxPrice: &maxPrice,
		Limit:    2,
	})

	require.NoError(t, err)
	require.Len(t, places, 2, "limit caps the mapped results")

	first := places[0]
	assert.Equal(t, "p1", first.PlaceID)
	assert.Equal(t, "A", first.Name)
	require.NotNil(t, first.Rating)
	assert.InDelta(t, 4.5, *first.Rating, 1e-9)
	require.NotNil(t, first.Location)
	assert.InDelta(t, 1.0, first.Location.Lat, 1e-9)

	second := places[1]
	assert.Nil(t, second.Rating)
	assert.Nil(t, second.Location)
}

func TestSearchText_NoAPIKeyReturnsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an API key")
	}, "")

	places, err := c.SearchText(context.Background(), SearchArgs{Query: "coffee"})
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}

func TestSearchText_HTTPErrorSurfaces(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, "test-key")

	_, err := c.SearchText(context.Background(), SearchArgs{Query: "coffee"})
	assert.Error(t, err)
}

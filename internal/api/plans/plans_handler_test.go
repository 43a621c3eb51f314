package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plansapp/go-plans-api/internal/types"
)

type MockPlansService struct {
	mock.Mock
}

func (m *MockPlansService) Suggest(ctx context.Context, req types.SuggestRequest) (*types.SuggestResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*types.SuggestResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlansService) Feed(ctx context.Context, req types.FeedRequest) (*types.FeedResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*types.FeedResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSuggestHandler_MissingHandle(t *testing.T) {
	svc := new(MockPlansService)
	h := NewHandler(svc, testLogger())

	rec := postJSON(t, h.Suggest, "/plans/suggest", `{"city":"Lisbon"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "handle is required")
	svc.AssertNotCalled(t, "Suggest")
}

func TestSuggestHandler_BadJSON(t *testing.T) {
	h := NewHandler(new(MockPlansService), testLogger())

	rec := postJSON(t, h.Suggest, "/plans/suggest", `{"handle":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestHandler_Success(t *testing.T) {
	svc := new(MockPlansService)
	svc.On("Suggest", mock.Anything, mock.MatchedBy(func(req types.SuggestRequest) bool {
		return req.Handle == "ana"
	})).Return(&types.SuggestResponse{
		Ok:          true,
		Group:       []string{"ana"},
		TopTags:     []string{"coffee"},
		Liked:       []types.LikedVenue{},
		Suggestions: []types.Suggestion{{Title: "Coffee crawl", Places: []types.Place{}}},
	}, nil)

	h := NewHandler(svc, testLogger())
	rec := postJSON(t, h.Suggest, "/plans/suggest", `{"handle":"ana"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.SuggestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "Coffee crawl", resp.Suggestions[0].Title)
	svc.AssertExpectations(t)
}

func TestSuggestHandler_ServiceError(t *testing.T) {
	svc := new(MockPlansService)
	svc.On("Suggest", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("boom"))

	h := NewHandler(svc, testLogger())
	rec := postJSON(t, h.Suggest, "/plans/suggest", `{"handle":"ana"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeedHandler_OkResponse(t *testing.T) {
	svc := new(MockPlansService)
	svc.On("Feed", mock.Anything, mock.Anything).Return(&types.FeedResponse{
		Ok:          true,
		Suggestions: []types.Suggestion{{Title: "Gallery hop", Places: []types.Place{}}},
	}, nil)

	h := NewHandler(svc, testLogger())
	rec := postJSON(t, h.Feed, "/plans/feed", `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeedHandler_FallbackIs500WithBody(t *testing.T) {
	svc := new(MockPlansService)
	svc.On("Feed", mock.Anything, mock.Anything).Return(&types.FeedResponse{
		Ok:          false,
		Error:       "Failed to generate feed",
		Suggestions: fallbackSuggestions(),
	}, nil)

	h := NewHandler(svc, testLogger())
	rec := postJSON(t, h.Feed, "/plans/feed", `{"city":"Lisbon"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp types.FeedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ok)
	assert.Len(t, resp.Suggestions, 4, "fallbacks still ship in the failure body")
	assert.NotEmpty(t, resp.Error)
}

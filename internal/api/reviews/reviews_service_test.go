package reviews

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plansapp/go-plans-api/internal/api/memory"
	"github.com/plansapp/go-plans-api/internal/types"
)

type MockReviewsRepo struct {
	mock.Mock
}

func (m *MockReviewsRepo) UpsertActivity(ctx context.Context, placeID, name string) (uuid.UUID, error) {
	args := m.Called(ctx, placeID, name)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockReviewsRepo) CreateReview(ctx context.Context, userID, activityID uuid.UUID, rating int, tags []string, text string) (uuid.UUID, error) {
	args := m.Called(ctx, userID, activityID, rating, tags, text)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockReviewsRepo) GetReviewsByUserID(ctx context.Context, userID uuid.UUID) ([]types.Review, error) {
	args := m.Called(ctx, userID)
	if r, ok := args.Get(0).([]types.Review); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewsRepo) GetReviewOwner(ctx context.Context, reviewID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockReviewsRepo) DeleteReview(ctx context.Context, reviewID uuid.UUID) error {
	return m.Called(ctx, reviewID).Error(0)
}

func (m *MockReviewsRepo) GetUserHandle(ctx context.Context, userID uuid.UUID) (*string, error) {
	args := m.Called(ctx, userID)
	if h, ok := args.Get(0).(*string); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeMemoryClient records appends and signals when one lands, so tests can
// wait for the detached goroutine.
type fakeMemoryClient struct {
	mu       sync.Mutex
	appends  []memory.TasteMemo
	appended chan struct{}
}

func newFakeMemoryClient() *fakeMemoryClient {
	return &fakeMemoryClient{appended: make(chan struct{}, 1)}
}

func (f *fakeMemoryClient) GetOrCreateTasteAgent(ctx context.Context, handle string) (string, error) {
	return "agent-" + handle, nil
}

func (f *fakeMemoryClient) AppendTasteMemory(ctx context.Context, agentID string, memo memory.TasteMemo) error {
	f.mu.Lock()
	f.appends = append(f.appends, memo)
	f.mu.Unlock()
	select {
	case f.appended <- struct{}{}:
	default:
	}
	return nil
}

func strPtr(s string) *string       { return &s }
func float64Ptr(v float64) *float64 { return &v }

func newTestService(repo Repository, mem memory.Client) *ServiceImpl {
	return NewReviewsService(repo, mem, slog.New(slog.DiscardHandler))
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc := newTestService(new(MockReviewsRepo), newFakeMemoryClient())
	userID := uuid.New()

	tests := []struct {
		name string
		req  types.CreateReviewRequest
		want error
	}{
		{"missing placeId", types.CreateReviewRequest{Name: "Tartine", Rating: float64Ptr(5)}, ErrMissingPlace},
		{"missing name", types.CreateReviewRequest{PlaceID: "p1", Rating: float64Ptr(5)}, ErrMissingPlace},
		{"blank name", types.CreateReviewRequest{PlaceID: "p1", Name: "   ", Rating: float64Ptr(5)}, ErrMissingPlace},
		{"missing rating", types.CreateReviewRequest{PlaceID: "p1", Name: "Tartine"}, ErrInvalidRating},
		{"rating too low", types.CreateReviewRequest{PlaceID: "p1", Name: "Tartine", Rating: float64Ptr(0)}, ErrInvalidRating},
		{"rating too high", types.CreateReviewRequest{PlaceID: "p1", Name: "Tartine", Rating: float64Ptr(9)}, ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), userID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_Success(t *testing.T) {
	userID := uuid.New()
	activityID := uuid.New()
	reviewID := uuid.New()

	repo := new(MockReviewsRepo)
	repo.On("UpsertActivity", mock.Anything, "p1", "Tartine").Return(activityID, nil)
	repo.On("CreateReview", mock.Anything, userID, activityID, 4, []string{"bakery", "pastry"}, "flaky perfection").
		Return(reviewID, nil)
	repo.On("GetUserHandle", mock.Anything, userID).Return(strPtr("ana"), nil).Maybe()

	mem := newFakeMemoryClient()
	svc := newTestService(repo, mem)

	resp, err := svc.Create(context.Background(), userID, types.CreateReviewRequest{
		PlaceID: "p1",
		Name:    " Tartine ",
		Rating:  float64Ptr(4.2), // rounds to 4
		Tags:    []string{" Bakery ", "PASTRY", ""},
		Text:    "flaky perfection",
	})

	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.Equal(t, reviewID, resp.ReviewID)
	repo.AssertExpectations(t)

	select {
	case <-mem.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("expected taste memory append")
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	require.Len(t, mem.appends, 1)
	assert.Equal(t, "p1", mem.appends[0].PlaceID)
	assert.Equal(t, 4, mem.appends[0].Rating)
}

func TestCreate_MemoryFailureDoesNotAffectResponse(t *testing.T) {
	userID := uuid.New()
	repo := new(MockReviewsRepo)
	repo.On("UpsertActivity", mock.Anything, mock.Anything, mock.Anything).Return(uuid.New(), nil)
	repo.On("CreateReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.New(), nil)
	// Handle lookup failing kills the side channel silently.
	repo.On("GetUserHandle", mock.Anything, userID).Return(nil, types.ErrNotFound).Maybe()

	resp, err := newTestService(repo, newFakeMemoryClient()).Create(context.Background(), userID, types.CreateReviewRequest{
		PlaceID: "p1",
		Name:    "Tartine",
		Rating:  float64Ptr(5),
	})

	require.NoError(t, err)
	assert.True(t, resp.Ok)
}

func TestDelete_OwnerOnly(t *testing.T) {
	ownerID := uuid.New()
	intruderID := uuid.New()
	reviewID := uuid.New()

	repo := new(MockReviewsRepo)
	repo.On("GetReviewOwner", mock.Anything, reviewID).Return(ownerID, nil)

	err := newTestService(repo, newFakeMemoryClient()).Delete(context.Background(), intruderID, reviewID)

	assert.ErrorIs(t, err, types.ErrForbidden)
	repo.AssertNotCalled(t, "DeleteReview")
}

func TestDelete_NotFound(t *testing.T) {
	repo := new(MockReviewsRepo)
	repo.On("GetReviewOwner", mock.Anything, mock.Anything).Return(uuid.Nil, types.ErrNotFound)

	err := newTestService(repo, newFakeMemoryClient()).Delete(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelete_Success(t *testing.T) {
	ownerID := uuid.New()
	reviewID := uuid.New()

	repo := new(MockReviewsRepo)
	repo.On("GetReviewOwner", mock.Anything, reviewID).Return(ownerID, nil)
	repo.On("DeleteReview", mock.Anything, reviewID).Return(nil)

	err := newTestService(repo, newFakeMemoryClient()).Delete(context.Background(), ownerID, reviewID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

package friends

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plansapp/go-plans-api/internal/types"
)

type MockFriendsRepo struct {
	mock.Mock
}

func (m *MockFriendsRepo) GetUserByHandle(ctx context.Context, handle string) (*types.PublicUser, error) {
	args := m.Called(ctx, handle)
	if u, ok := args.Get(0).(*types.PublicUser); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendsRepo) GetFriends(ctx context.Context, userID uuid.UUID) ([]types.PublicUser, error) {
	args := m.Called(ctx, userID)
	if u, ok := args.Get(0).([]types.PublicUser); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendsRepo) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error) {
	args := m.Called(ctx, userID)
	if r, ok := args.Get(0).([]types.FriendRequest); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendsRepo) GetSentRequests(ctx context.Context, userID uuid.UUID) ([]types.FriendRequest, error) {
	args := m.Called(ctx, userID)
	if r, ok := args.Get(0).([]types.FriendRequest); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendsRepo) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendsRepo) PendingRequestExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendsRepo) CreateFriendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockFriendsRepo) GetFriendRequestByID(ctx context.Context, requestID uuid.UUID) (*RequestRow, error) {
	args := m.Called(ctx, requestID)
	if r, ok := args.Get(0).(*RequestRow); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendsRepo) AcceptFriendRequest(ctx context.Context, requestID uuid.UUID) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *MockFriendsRepo) DeleteFriendRequest(ctx context.Context, requestID uuid.UUID) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *MockFriendsRepo) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return m.Called(ctx, userID, friendID).Error(0)
}

func newTestService(repo Repository) *ServiceImpl {
	return NewFriendsService(repo, slog.New(slog.DiscardHandler))
}

func strPtr(s string) *string { return &s }

func TestSendRequest_UnknownHandle(t *testing.T) {
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "ghost").Return(nil, types.ErrNotFound)

	_, err := newTestService(repo).SendRequest(context.Background(), uuid.New(), "ghost")

	assert.ErrorIs(t, err, types.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestSendRequest_Self(t *testing.T) {
	userID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "me").Return(&types.PublicUser{ID: userID, Handle: strPtr("me")}, nil)

	_, err := newTestService(repo).SendRequest(context.Background(), userID, "Me")

	assert.ErrorIs(t, err, ErrSelfRequest)
	repo.AssertNotCalled(t, "CreateFriendRequest")
}

func TestSendRequest_AlreadyFriends(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "ana").Return(&types.PublicUser{ID: otherID, Handle: strPtr("ana")}, nil)
	repo.On("AreFriends", mock.Anything, userID, otherID).Return(true, nil)

	_, err := newTestService(repo).SendRequest(context.Background(), userID, "ana")

	assert.ErrorIs(t, err, ErrAlreadyFriends)
	repo.AssertNotCalled(t, "CreateFriendRequest")
}

func TestSendRequest_DuplicatePending(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "ana").Return(&types.PublicUser{ID: otherID, Handle: strPtr("ana")}, nil)
	repo.On("AreFriends", mock.Anything, userID, otherID).Return(false, nil)
	repo.On("PendingRequestExists", mock.Anything, userID, otherID).Return(true, nil)

	_, err := newTestService(repo).SendRequest(context.Background(), userID, "ana")

	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSendRequest_RaceConflictMapsToDuplicate(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "ana").Return(&types.PublicUser{ID: otherID, Handle: strPtr("ana")}, nil)
	repo.On("AreFriends", mock.Anything, userID, otherID).Return(false, nil)
	repo.On("PendingRequestExists", mock.Anything, userID, otherID).Return(false, nil)
	repo.On("CreateFriendRequest", mock.Anything, userID, otherID).Return(uuid.Nil, types.ErrConflict)

	_, err := newTestService(repo).SendRequest(context.Background(), userID, "ana")

	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSendRequest_Success(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetUserByHandle", mock.Anything, "ana").Return(&types.PublicUser{ID: otherID, Handle: strPtr("ana"), Name: "Ana"}, nil)
	repo.On("AreFriends", mock.Anything, userID, otherID).Return(false, nil)
	repo.On("PendingRequestExists", mock.Anything, userID, otherID).Return(false, nil)
	repo.On("CreateFriendRequest", mock.Anything, userID, otherID).Return(uuid.New(), nil)

	receiver, err := newTestService(repo).SendRequest(context.Background(), userID, " Ana ")

	require.NoError(t, err)
	assert.Equal(t, otherID, receiver.ID)
	repo.AssertExpectations(t)
}

func TestAcceptRequest_OnlyReceiver(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()
	requestID := uuid.New()

	repo := new(MockFriendsRepo)
	repo.On("GetFriendRequestByID", mock.Anything, requestID).Return(&RequestRow{
		ID: requestID, SenderID: senderID, ReceiverID: receiverID,
	}, nil)

	// The sender cannot accept their own request.
	err := newTestService(repo).AcceptRequest(context.Background(), senderID, requestID)

	assert.ErrorIs(t, err, types.ErrForbidden)
	repo.AssertNotCalled(t, "AcceptFriendRequest")
}

func TestAcceptRequest_Success(t *testing.T) {
	senderID := uuid.New()
	receiverID := uuid.New()
	requestID := uuid.New()

	repo := new(MockFriendsRepo)
	repo.On("GetFriendRequestByID", mock.Anything, requestID).Return(&RequestRow{
		ID: requestID, SenderID: senderID, ReceiverID: receiverID,
	}, nil)
	repo.On("AcceptFriendRequest", mock.Anything, requestID).Return(nil)

	err := newTestService(repo).AcceptRequest(context.Background(), receiverID, requestID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRejectRequest_NotFound(t *testing.T) {
	repo := new(MockFriendsRepo)
	repo.On("GetFriendRequestByID", mock.Anything, mock.Anything).Return(nil, types.ErrNotFound)

	err := newTestService(repo).RejectRequest(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestList_AggregatesAllThree(t *testing.T) {
	userID := uuid.New()
	repo := new(MockFriendsRepo)
	repo.On("GetFriends", mock.Anything, userID).Return([]types.PublicUser{{Name: "Ana"}}, nil)
	repo.On("GetPendingRequests", mock.Anything, userID).Return([]types.FriendRequest{{ID: uuid.New()}}, nil)
	repo.On("GetSentRequests", mock.Anything, userID).Return([]types.FriendRequest{}, nil)

	list, err := newTestService(repo).List(context.Background(), userID)

	require.NoError(t, err)
	assert.Len(t, list.Friends, 1)
	assert.Len(t, list.PendingRequests, 1)
	assert.Empty(t, list.SentRequests)
	repo.AssertExpectations(t)
}

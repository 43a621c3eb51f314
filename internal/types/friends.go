package types

import (
	"time"

	"github.com/google/uuid"
)

// FriendRequest is a pending invitation between two users.
type FriendRequest struct {
	ID        uuid.UUID  `json:"id"`
	Sender    PublicUser `json:"sender"`
	Receiver  PublicUser `json:"receiver"`
	CreatedAt time.Time  `json:"createdAt"`
}

// FriendsListResponse is the full social state for one user.
type FriendsListResponse struct {
	Friends         []PublicUser    `json:"friends"`
	PendingRequests []FriendRequest `json:"pendingRequests"`
	SentRequests    []FriendRequest `json:"sentRequests"`
}

// SendFriendRequestRequest addresses the receiver by handle.
type SendFriendRequestRequest struct {
	Handle string `json:"handle"`
}

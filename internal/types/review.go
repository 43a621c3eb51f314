package types

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a reviewable place, keyed by its external place identifier.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	PlaceID   string    `json:"placeId"`
	Name      string    `json:"name"`
	Category  *string   `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review belongs to exactly one user and one activity.
type Review struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	ActivityID uuid.UUID `json:"activityId"`
	Rating     *int      `json:"rating"`
	Text       string    `json:"text"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	Activity   *Activity `json:"activity,omitempty"`
}

// ReviewWithActivity is the slim join the taste profile aggregation reads:
// the review's signal plus the place it refers to.
type ReviewWithActivity struct {
	Rating       *int     `json:"rating"`
	Tags         []string `json:"tags"`
	ActivityName string   `json:"activityName"`
	PlaceID      *string  `json:"placeId"`
}

// CreateReviewRequest represents the expected JSON body for creating a review.
type CreateReviewRequest struct {
	PlaceID string   `json:"placeId"`
	Name    string   `json:"name"`
	Rating  *float64 `json:"rating"`
	Tags    []string `json:"tags,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// CreateReviewResponse acknowledges a stored review.
type CreateReviewResponse struct {
	Ok       bool      `json:"ok"`
	ReviewID uuid.UUID `json:"reviewId"`
}

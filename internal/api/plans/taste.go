package plans

import (
	"sort"
	"strings"

	"github.com/plansapp/go-plans-api/internal/types"
)

const (
	recentReviewLimit = 100
	maxTopTags        = 10
	maxLikedVenues    = 10
	likedMinRating    = 4
)

// buildTasteProfile aggregates recent reviews into the per-request taste
// signal. Reviews must arrive newest first; liked venues keep that order.
// A tag's weight is the sum of the ratings of the reviews carrying it, so a
// tag on two 5-star reviews outranks a tag on one. Unrated reviews count
// their tags with weight zero.
func buildTasteProfile(reviews []types.ReviewWithActivity) types.TasteProfile {
	tagWeights := make(map[string]int)
	var tagOrder []string

	likedSeen := make(map[string]bool)
	liked := make([]types.LikedVenue, 0, maxLikedVenues)

	for _, rv := range reviews {
		rating := 0
		if rv.Rating != nil {
			rating = *rv.Rating
		}

		for _, tag := range rv.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, ok := tagWeights[tag]; !ok {
				tagOrder = append(tagOrder, tag)
			}
			tagWeights[tag] += rating
		}

		name := strings.TrimSpace(rv.ActivityName)
		if rating >= likedMinRating && name != "" && len(liked) < maxLikedVenues {
			key := strings.ToLower(name)
			if rv.PlaceID != nil && *rv.PlaceID != "" {
				key = *rv.PlaceID
			}
			if !likedSeen[key] {
				likedSeen[key] = true
				liked = append(liked, types.LikedVenue{Name: name, PlaceID: rv.PlaceID})
			}
		}
	}

	// Stable sort keeps first-seen order between equal weights.
	sort.SliceStable(tagOrder, func(i, j int) bool {
		return tagWeights[tagOrder[i]] > tagWeights[tagOrder[j]]
	})
	if len(tagOrder) > maxTopTags {
		tagOrder = tagOrder[:maxTopTags]
	}

	return types.TasteProfile{
		TopTags: append([]string{}, tagOrder...),
		Liked:   liked,
	}
}

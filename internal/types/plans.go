package types

// Coords is a WGS84 point.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a search result from the places provider.
type Place struct {
	PlaceID    string   `json:"placeId"`
	Name       string   `json:"name"`
	Address    *string  `json:"address"`
	Rating     *float64 `json:"rating"`
	PriceLevel *int     `json:"priceLevel,omitempty"`
	Location   *Coords  `json:"location"`
	Types      []string `json:"types,omitempty"`
}

// Suggestion is one generated activity idea. Places is never nil in a
// response; it defaults to an empty slice before enrichment runs.
type Suggestion struct {
	Title  string  `json:"title"`
	Reason string  `json:"reason"`
	Query  string  `json:"query,omitempty"`
	Places []Place `json:"places"`
}

// LikedVenue is a venue the group previously rated highly.
type LikedVenue struct {
	Name    string  `json:"name"`
	PlaceID *string `json:"placeId"`
}

// TasteProfile is derived per request from recent reviews, never persisted.
type TasteProfile struct {
	TopTags []string     `json:"topTags"`
	Liked   []LikedVenue `json:"liked"`
}

// IsEmpty reports whether the profile carries any personalization signal.
func (p TasteProfile) IsEmpty() bool {
	return len(p.TopTags) == 0 && len(p.Liked) == 0
}

// SuggestRequest is the payload of POST /plans/suggest.
type SuggestRequest struct {
	Handle     string   `json:"handle"`
	Companions []string `json:"companions,omitempty"`
	City       string   `json:"city,omitempty"`
	BudgetMax  *float64 `json:"budgetMax,omitempty"`
	Occasion   string   `json:"occasion,omitempty"`
	Coords     *Coords  `json:"coords,omitempty"`
}

// FeedRequest is the payload of POST /plans/feed. Everything is optional.
type FeedRequest struct {
	Handle    string   `json:"handle,omitempty"`
	City      string   `json:"city,omitempty"`
	BudgetMax *float64 `json:"budgetMax,omitempty"`
	Occasion  string   `json:"occasion,omitempty"`
	Coords    *Coords  `json:"coords,omitempty"`
}

// SuggestResponse echoes the resolved context along with the enriched
// suggestions and the taste signals they were generated from.
type SuggestResponse struct {
	Ok          bool         `json:"ok"`
	Group       []string     `json:"group"`
	City        *string      `json:"city"`
	Coords      *Coords      `json:"coords"`
	BudgetMax   *float64     `json:"budgetMax"`
	TopTags     []string     `json:"topTags"`
	Liked       []LikedVenue `json:"liked"`
	Suggestions []Suggestion `json:"suggestions"`
}

// FeedResponse is the passive home-feed envelope. On total generation
// failure it still carries the enriched fallback suggestions.
type FeedResponse struct {
	Ok          bool         `json:"ok"`
	City        *string      `json:"city"`
	Coords      *Coords      `json:"coords"`
	BudgetMax   *float64     `json:"budgetMax"`
	Suggestions []Suggestion `json:"suggestions"`
	Error       string       `json:"error,omitempty"`
}

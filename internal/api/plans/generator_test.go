package plans

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func toolCallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
					},
				},
			},
		},
	}
}

func TestSuggestionsFromToolCall(t *testing.T) {
	resp := toolCallResponse(suggestionsToolName, map[string]any{
		"suggestions": []any{
			map[string]any{"title": "Arcade night", "reason": "Retro games fit the group", "query": "arcade bar"},
			map[string]any{"title": "Ramen crawl", "reason": "Everyone tagged noodles", "query": "ramen restaurants"},
		},
	})

	got, ok := suggestionsFromToolCall(resp)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Arcade night", got[0].Title)
	assert.Equal(t, "arcade bar", got[0].Query)
	assert.NotNil(t, got[0].Places)
}

func TestSuggestionsFromToolCall_HintNamesTheQuery(t *testing.T) {
	resp := toolCallResponse(suggestionsToolName, map[string]any{
		"suggestions": []any{
			map[string]any{"title": "Arcade night", "reason": "Retro games fit the group", "hint": "arcade bar"},
			map[string]any{"title": "Taco crawl", "reason": "Everyone tagged tacos", "query": "taco spots", "hint": "ignored"},
		},
	})

	got, ok := suggestionsFromToolCall(resp)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "arcade bar", got[0].Query)
	assert.Equal(t, "taco spots", got[1].Query, "query wins when both are present")
}

func TestSuggestionsFromToolCall_WrongToolIgnored(t *testing.T) {
	resp := toolCallResponse("some_other_tool", map[string]any{
		"suggestions": []any{map[string]any{"title": "X", "reason": "Y"}},
	})

	_, ok := suggestionsFromToolCall(resp)
	assert.False(t, ok)
}

func TestSuggestionsFromToolCall_NilResponse(t *testing.T) {
	_, ok := suggestionsFromToolCall(nil)
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced block",
			in:   "Here you go:\n```json\n{\"suggestions\":[]}\n```\nEnjoy!",
			want: `{"suggestions":[]}`,
		},
		{
			name: "fence without language tag",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "bare braces in prose",
			in:   `Sure! {"suggestions":[{"title":"X"}]} Hope that helps.`,
			want: `{"suggestions":[{"title":"X"}]}`,
		},
		{
			name: "top level array",
			in:   `[{"title":"X"}]`,
			want: `[{"title":"X"}]`,
		},
		{
			name: "no json at all",
			in:   "I cannot help with that.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestSuggestionsFromJSON_Envelope(t *testing.T) {
	text := "```json\n" + `{"suggestions":[
        {"title":"Coffee crawl","reason":"You both love coffee","query":"specialty coffee"},
        {"title":"Bookstore hop","reason":"Quiet afternoon","query":"independent bookstores"}
    ]}` + "\n```"

	got, ok := suggestionsFromJSON(text)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Coffee crawl", got[0].Title)
}

func TestSuggestionsFromJSON_BareArray(t *testing.T) {
	got, ok := suggestionsFromJSON(`[{"title":"Picnic","reason":"Sunny out"}]`)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Picnic", got[0].Title)
}

func TestSuggestionsFromJSON_HintField(t *testing.T) {
	got, ok := suggestionsFromJSON(`[{"title":"Picnic","reason":"Sunny out","hint":"parks with lawns"}]`)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "parks with lawns", got[0].Query)
}

func TestSuggestionsFromJSON_Invalid(t *testing.T) {
	for _, text := range []string{
		"",
		"no json here",
		`{"suggestions": "not an array"}`,
		`{"suggestions": []}`,
		`{"suggestions": [{"reason":"missing title"}]}`,
	} {
		_, ok := suggestionsFromJSON(text)
		assert.False(t, ok, "expected no parse for %q", text)
	}
}

func TestCoerceSuggestion_Bounds(t *testing.T) {
	raw := rawSuggestion{
		Title:  strings.Repeat("t", 200),
		Reason: strings.Repeat("r", 300),
		Query:  strings.Repeat("q", 300),
	}

	got, ok := coerceSuggestion(raw)
	require.True(t, ok)
	assert.Len(t, got.Title, maxTitleLen)
	assert.Len(t, got.Reason, maxReasonLen)
	assert.Len(t, got.Query, maxQueryLen)
}

func TestCoerceSuggestion_EmptyTitleDropped(t *testing.T) {
	_, ok := coerceSuggestion(rawSuggestion{Title: "   ", Reason: "whatever"})
	assert.False(t, ok)
}

func TestCoerceSuggestions_Capped(t *testing.T) {
	raws := make([]rawSuggestion, 10)
	for i := range raws {
		raws[i] = rawSuggestion{Title: "Idea", Reason: "Because"}
	}

	got := coerceSuggestions(raws)
	assert.Len(t, got, maxSuggestions)
}

func TestSuggestionsFromLines(t *testing.T) {
	text := `Here are some ideas:
1. Arcade night - Old school games and cheap beer
2. Taco crawl - Hit three taquerias in one evening
3. Night museum visit - The modern art museum is open late Thursdays`

	got := suggestionsFromLines(text)
	require.Len(t, got, 3)
	assert.Equal(t, "Arcade night", got[0].Title)
	assert.Equal(t, "Old school games and cheap beer", got[0].Reason)
	assert.Equal(t, "Night museum visit", got[2].Title)
}

func TestSuggestionsFromLines_BulletsAndColons(t *testing.T) {
	text := "- Karaoke: Sing until you drop\n* Bowling: Loser buys drinks\n- Pizza tour: Four slices, four styles"

	got := suggestionsFromLines(text)
	require.Len(t, got, 3)
	assert.Equal(t, "Karaoke", got[0].Title)
	assert.Equal(t, "Loser buys drinks", got[1].Reason)
}

func TestSuggestionsFromLines_HintMarkers(t *testing.T) {
	text := `1. Arcade night - Retro games and cheap beer. hint: arcade bar
2. Taco crawl - Three taquerias in one evening. keywords: taco spots
3. Night museum visit - Open late on Thursdays`

	got := suggestionsFromLines(text)
	require.Len(t, got, 3)
	assert.Equal(t, "arcade bar", got[0].Query)
	assert.Equal(t, "Retro games and cheap beer.", got[0].Reason)
	assert.Equal(t, "taco spots", got[1].Query)
	assert.NotContains(t, got[1].Reason, "keywords")
	assert.Empty(t, got[2].Query)
}

func TestSuggestionsFromLines_TooFewIsNotAParse(t *testing.T) {
	text := "1. Arcade night - Games\n2. Taco crawl - Tacos"
	assert.Nil(t, suggestionsFromLines(text))
}

func TestSuggestionsFromLines_ProseRejected(t *testing.T) {
	text := strings.Repeat("This is a very long paragraph of prose that should never be mistaken for a suggestion list because it just keeps going. ", 3)
	assert.Nil(t, suggestionsFromLines(text))
}

func TestFallbackSuggestions(t *testing.T) {
	got := fallbackSuggestions()
	require.Len(t, got, 4)
	for _, s := range got {
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Query)
		assert.NotNil(t, s.Places)
	}
}

func TestBuildSuggestPrompt_IncludesContext(t *testing.T) {
	budget := 50.0
	prompt := buildSuggestPrompt(GenerateInput{
		Group:     []string{"ana", "ben"},
		City:      "Lisbon",
		BudgetMax: &budget,
		Occasion:  "birthday",
	})

	assert.Contains(t, prompt, "ana, ben")
	assert.Contains(t, prompt, "Lisbon")
	assert.Contains(t, prompt, "50")
	assert.Contains(t, prompt, "birthday")
}

func TestBuildFeedPrompt_OmitsEmptyContext(t *testing.T) {
	prompt := buildFeedPrompt(GenerateInput{})

	assert.NotContains(t, prompt, "Group:")
	assert.NotContains(t, prompt, "City:")
	assert.NotContains(t, prompt, "Budget:")
}

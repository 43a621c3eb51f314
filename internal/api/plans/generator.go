package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/plansapp/go-plans-api/app/observability/metrics"
	"github.com/plansapp/go-plans-api/internal/types"
)

const (
	maxTitleLen    = 60
	maxReasonLen   = 140
	maxQueryLen    = 120
	maxSuggestions = 6

	// The line heuristic only counts as a parse when the model clearly
	// produced a list, not one stray sentence.
	minLineSuggestions = 3

	suggestionsToolName = "return_suggestions"
	generationTimeout   = 20 * time.Second
)

// AIProvider is the slice of the generative client the generator needs.
type AIProvider interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenerateInput carries the resolved request context plus the taste profile
// into prompt construction.
type GenerateInput struct {
	Group     []string
	City      string
	BudgetMax *float64
	Occasion  string
	Profile   types.TasteProfile
}

// SuggestionGenerator turns a taste profile and request context into
// suggestions, degrading tier by tier when the provider misbehaves.
type SuggestionGenerator struct {
	ai      AIProvider
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewSuggestionGenerator(ai AIProvider, logger *slog.Logger) *SuggestionGenerator {
	metrics.InitAppMetrics()
	return &SuggestionGenerator{
		ai:      ai,
		logger:  logger,
		metrics: metrics.Get(),
	}
}

const suggestSystemInstruction = `You are a local activity planner for small groups of friends.
Always respond by calling the return_suggestions function with 3 to 5 suggestions.
Each suggestion needs a short title, a reason grounded in the group's tastes, and a places search query.`

const feedSystemInstruction = `You are a local activity planner writing a passive discovery feed.
Respond with a single JSON object of the shape {"suggestions":[{"title":"...","reason":"...","query":"..."}]} and nothing else.
No markdown, no commentary. Return 3 to 5 suggestions.`

func suggestionsTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        suggestionsToolName,
				Description: "Return 3 to 5 activity suggestions for the group.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"suggestions": {
							Type:        genai.TypeArray,
							Description: "Between 3 and 5 suggestions.",
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"title": {
										Type:        genai.TypeString,
										Description: "Short activity title, a few words.",
									},
									"reason": {
										Type:        genai.TypeString,
										Description: "One sentence on why this fits the group.",
									},
									"query": {
										Type:        genai.TypeString,
										Description: "Text search query to find matching places.",
									},
								},
								Required: []string{"title", "reason"},
							},
						},
					},
					Required: []string{"suggestions"},
				},
			},
		},
	}
}

func systemContent(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

func writeContext(b *strings.Builder, in GenerateInput) {
	if len(in.Group) > 0 {
		fmt.Fprintf(b, "Group: %s.\n", strings.Join(in.Group, ", "))
	}
	if in.City != "" {
		fmt.Fprintf(b, "City: %s.\n", in.City)
	}
	if in.BudgetMax != nil {
		fmt.Fprintf(b, "Budget: up to %.0f per person.\n", *in.BudgetMax)
	}
	if in.Occasion != "" {
		fmt.Fprintf(b, "Occasion: %s.\n", in.Occasion)
	}
	if len(in.Profile.TopTags) > 0 {
		fmt.Fprintf(b, "The group's favorite tags, strongest first: %s.\n", strings.Join(in.Profile.TopTags, ", "))
	}
	if len(in.Profile.Liked) > 0 {
		names := make([]string, 0, len(in.Profile.Liked))
		for _, v := range in.Profile.Liked {
			names = append(names, v.Name)
		}
		fmt.Fprintf(b, "Places they already loved: %s. Suggest things in the same spirit, not the same venues.\n", strings.Join(names, ", "))
	}
}

func buildSuggestPrompt(in GenerateInput) string {
	var b strings.Builder
	b.WriteString("Plan an outing for this group of friends.\n")
	writeContext(&b, in)
	b.WriteString("Call return_suggestions with 3 to 5 concrete activity ideas they could do together today or this week.")
	return b.String()
}

func buildFeedPrompt(in GenerateInput) string {
	var b strings.Builder
	b.WriteString("Generate a discovery feed of activity ideas.\n")
	writeContext(&b, in)
	b.WriteString("Return the JSON object now.")
	return b.String()
}

// rawSuggestion is the permissive wire shape; coercion turns it into the
// bounded response type.
type rawSuggestion struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
	Query  string `json:"query"`
	Hint   string `json:"hint"`
}

type suggestionEnvelope struct {
	Suggestions []rawSuggestion `json:"suggestions"`
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func coerceSuggestion(raw rawSuggestion) (types.Suggestion, bool) {
	title := truncateRunes(strings.TrimSpace(raw.Title), maxTitleLen)
	if title == "" {
		return types.Suggestion{}, false
	}
	// Some responses name the search query "hint" instead of "query".
	query := strings.TrimSpace(raw.Query)
	if query == "" {
		query = strings.TrimSpace(raw.Hint)
	}
	return types.Suggestion{
		Title:  title,
		Reason: truncateRunes(strings.TrimSpace(raw.Reason), maxReasonLen),
		Query:  truncateRunes(query, maxQueryLen),
		Places: []types.Place{},
	}, true
}

func coerceSuggestions(raws []rawSuggestion) []types.Suggestion {
	out := make([]types.Suggestion, 0, len(raws))
	for _, raw := range raws {
		if s, ok := coerceSuggestion(raw); ok {
			out = append(out, s)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// suggestionsFromToolCall is the first parsing tier: a structured
// return_suggestions call.
func suggestionsFromToolCall(resp *genai.GenerateContentResponse) ([]types.Suggestion, bool) {
	if resp == nil {
		return nil, false
	}
	for _, call := range resp.FunctionCalls() {
		if call == nil || call.Name != suggestionsToolName {
			continue
		}
		payload, err := json.Marshal(call.Args)
		if err != nil {
			continue
		}
		var env suggestionEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}
		if coerced := coerceSuggestions(env.Suggestions); len(coerced) > 0 {
			return coerced, true
		}
	}
	return nil, false
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON pulls a JSON document out of free text: a fenced block first,
// then the widest bracketed span.
func extractJSON(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(text, "]}")
	if end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// suggestionsFromJSON is the second tier: the documented JSON contract,
// tolerating markdown fences and a bare top-level array.
func suggestionsFromJSON(text string) ([]types.Suggestion, bool) {
	doc := extractJSON(text)
	if doc == "" {
		return nil, false
	}

	var env suggestionEnvelope
	if err := json.Unmarshal([]byte(doc), &env); err == nil && len(env.Suggestions) > 0 {
		if coerced := coerceSuggestions(env.Suggestions); len(coerced) > 0 {
			return coerced, true
		}
	}

	var bare []rawSuggestion
	if err := json.Unmarshal([]byte(doc), &bare); err == nil {
		if coerced := coerceSuggestions(bare); len(coerced) > 0 {
			return coerced, true
		}
	}
	return nil, false
}

var bulletPrefixRe = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+[.)])\s*`)

var hintMarkerRe = regexp.MustCompile(`(?i)\b(?:hint|keywords?)\s*:\s*`)

// suggestionsFromLines is the last permissive tier: a bulleted or numbered
// list, "Title - reason" or "Title: reason" per line, optionally ending in a
// "hint:"/"keywords:" marker naming a search query. Anything that looks like
// prose rather than a list yields nil.
func suggestionsFromLines(text string) []types.Suggestion {
	var out []types.Suggestion
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		stripped := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(trimmed, ""))
		if stripped == "" || len(stripped) > 160 {
			continue
		}
		hadBullet := stripped != trimmed

		// A trailing marker becomes the search query and leaves the reason.
		query := ""
		if loc := hintMarkerRe.FindStringIndex(stripped); loc != nil && loc[0] > 0 {
			query = strings.TrimSpace(stripped[loc[1]:])
			stripped = strings.TrimSpace(stripped[:loc[0]])
		}

		title, reason := stripped, ""
		hadSep := false
		for _, sep := range []string{" - ", ": "} {
			if i := strings.Index(stripped, sep); i > 0 {
				title, reason = stripped[:i], stripped[i+len(sep):]
				hadSep = true
				break
			}
		}
		// Surrounding prose has neither list markers nor a title separator.
		if !hadBullet && !hadSep && query == "" {
			continue
		}

		if s, ok := coerceSuggestion(rawSuggestion{Title: title, Reason: reason, Query: query}); ok {
			out = append(out, s)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) < minLineSuggestions {
		return nil
	}
	return out
}

// fallbackSuggestions is the static catalog the feed serves when generation
// fails outright. Queries stay generic so enrichment still finds something.
func fallbackSuggestions() []types.Suggestion {
	return []types.Suggestion{
		{
			Title:  "Coffee shop adventure",
			Reason: "A relaxed spot to catch up over good coffee.",
			Query:  "best coffee shops",
			Places: []types.Place{},
		},
		{
			Title:  "Try a new cuisine",
			Reason: "Pick a well rated restaurant none of you have been to.",
			Query:  "highly rated restaurants",
			Places: []types.Place{},
		},
		{
			Title:  "Weekend brunch",
			Reason: "Easy to rally the group around pancakes and eggs.",
			Query:  "brunch restaurants",
			Places: []types.Place{},
		},
		{
			Title:  "Scenic city walk",
			Reason: "Free, flexible, and good for conversation.",
			Query:  "scenic walks and viewpoints",
			Places: []types.Place{},
		},
	}
}

func (g *SuggestionGenerator) recordFallback(ctx context.Context, route, tier string) {
	g.metrics.GenerationFallbacksTotal.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.String("tier", tier),
	))
}

// ForSuggest runs the tool-calling framing and walks the parse tiers. It
// never fails: a dead provider degrades to zero suggestions.
func (g *SuggestionGenerator) ForSuggest(ctx context.Context, in GenerateInput) []types.Suggestion {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.ai.GenerateContent(ctx, buildSuggestPrompt(in), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.7),
		SystemInstruction: systemContent(suggestSystemInstruction),
		Tools:             []*genai.Tool{suggestionsTool()},
	})
	g.metrics.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		otelmetric.WithAttributes(attribute.String("route", "suggest")))

	if err != nil {
		g.logger.WarnContext(ctx, "Suggestion generation failed", slog.Any("error", err))
		g.recordFallback(ctx, "suggest", "provider_error")
		return []types.Suggestion{}
	}

	if s, ok := suggestionsFromToolCall(resp); ok {
		return s
	}

	text := resp.Text()
	if s, ok := suggestionsFromJSON(text); ok {
		g.recordFallback(ctx, "suggest", "json")
		return s
	}
	if s := suggestionsFromLines(text); s != nil {
		g.recordFallback(ctx, "suggest", "lines")
		return s
	}

	g.logger.WarnContext(ctx, "Suggestion response unparseable, returning none",
		slog.Int("responseLength", len(text)))
	g.recordFallback(ctx, "suggest", "unparseable")
	return []types.Suggestion{}
}

// ForFeed runs the strict JSON framing. An error return means the caller
// must serve fallbackSuggestions and flag the response as failed.
func (g *SuggestionGenerator) ForFeed(ctx context.Context, in GenerateInput) ([]types.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.ai.GenerateContent(ctx, buildFeedPrompt(in), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.8),
		SystemInstruction: systemContent(feedSystemInstruction),
	})
	g.metrics.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		otelmetric.WithAttributes(attribute.String("route", "feed")))

	if err != nil {
		g.recordFallback(ctx, "feed", "provider_error")
		return nil, fmt.Errorf("feed generation failed: %w", err)
	}

	text := resp.Text()
	if s, ok := suggestionsFromJSON(text); ok {
		return s, nil
	}

	g.recordFallback(ctx, "feed", "unparseable")
	return nil, fmt.Errorf("feed response did not contain parseable suggestions")
}

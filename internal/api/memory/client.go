package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/plansapp/go-plans-api/config"
)

var _ Client = (*HTTPClient)(nil)

// Client is the agent-memory side channel. Every call is best effort:
// callers swallow errors and must never let this affect their response.
type Client interface {
	GetOrCreateTasteAgent(ctx context.Context, handle string) (string, error)
	AppendTasteMemory(ctx context.Context, agentID string, memo TasteMemo) error
}

// TasteMemo is one appended taste observation.
type TasteMemo struct {
	PlaceID string   `json:"placeId"`
	Rating  int      `json:"rating"`
	Tags    []string `json:"tags,omitempty"`
	Text    string   `json:"text,omitempty"`
	TS      int64    `json:"ts"`
}

type HTTPClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	projectID  string
}

func NewHTTPClient(cfg config.MemoryConfig, logger *slog.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
	}
}

// Enabled reports whether the side channel is configured at all.
func (c *HTTPClient) Enabled() bool {
	return c.apiKey != "" && c.projectID != ""
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("memory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory request returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode memory response: %w", err)
		}
	}
	return nil
}

type agentEnvelope struct {
	ID   string `json:"id"`
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
}

type agentListEnvelope struct {
	Data []agentEnvelope `json:"data"`
}

// GetOrCreateTasteAgent looks up the per-handle taste agent by external ID,
// creating it on first use.
func (c *HTTPClient) GetOrCreateTasteAgent(ctx context.Context, handle string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	externalID := "taste:" + handle

	var list agentListEnvelope
	err := c.postJSON(ctx, "/v1/agents.list", map[string]interface{}{
		"project_id":  c.projectID,
		"external_id": externalID,
	}, &list)
	if err == nil && len(list.Data) > 0 {
		return list.Data[0].agentID(), nil
	}
	if err != nil {
		c.logger.DebugContext(ctx, "Agent lookup failed, trying create", slog.Any("error", err))
	}

	var created agentEnvelope
	err = c.postJSON(ctx, "/v1/agents.create", map[string]interface{}{
		"project_id":  c.projectID,
		"external_id": externalID,
		"name":        "TasteAgent:" + handle,
		"memoryBlocks": []map[string]interface{}{
			{"label": "human", "value": "handle=" + handle, "limit": 1000},
			{"label": "persona", "value": "you track evolving user taste from reviews and check-ins.", "limit": 1000},
		},
	}, &created)
	if err != nil {
		return "", err
	}
	return created.agentID(), nil
}

func (e agentEnvelope) agentID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Data != nil {
		return e.Data.ID
	}
	return ""
}

// AppendTasteMemory appends one taste block to the agent.
func (c *HTTPClient) AppendTasteMemory(ctx context.Context, agentID string, memo TasteMemo) error {
	if !c.Enabled() || agentID == "" {
		return nil
	}
	if memo.TS == 0 {
		memo.TS = time.Now().UnixMilli()
	}
	value, err := json.Marshal(memo)
	if err != nil {
		return fmt.Errorf("failed to marshal memo: %w", err)
	}
	return c.postJSON(ctx, "/v1/agents/"+agentID+"/memories.create", map[string]interface{}{
		"label": "taste",
		"value": string(value),
		"limit": 2000,
	}, nil)
}

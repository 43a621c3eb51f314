package generativeAI

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIClient_MissingKeyDisablesGeneration(t *testing.T) {
	ctx := context.Background()

	client, err := NewAIClient(ctx, "", "gemini-2.0-flash")
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = client.GenerateContent(ctx, "plan something", nil)
	assert.Error(t, err)
}

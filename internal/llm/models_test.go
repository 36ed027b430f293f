package llm

import (
	"context"
	"testing"
	"time"

	"giftmatch/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModelOpenAI(t *testing.T) {
	cm, err := NewChatModel(context.Background(), core.LLMConfig{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o-mini",
		APIKey:      "sk-test",
		Temperature: 0.7,
		MaxTokens:   256,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	assert.NotNil(t, cm)
}

func TestNewChatModelOllamaNeedsNoKey(t *testing.T) {
	cm, err := NewChatModel(context.Background(), core.LLMConfig{Provider: ProviderOllama, Model: "llama3.1"})
	require.NoError(t, err)
	assert.NotNil(t, cm)
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), core.LLMConfig{Provider: "bard"})
	assert.ErrorContains(t, err, "unsupported llm provider")
}

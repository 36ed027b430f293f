package llm

import (
	"context"
	"fmt"

	"giftmatch/internal/core"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"
)

// Supported chat model providers
const (
	ProviderOpenAI   = "openai"
	ProviderArk      = "ark"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)

// NewChatModel builds the tool-calling chat model for the configured provider
func NewChatModel(ctx context.Context, config core.LLMConfig) (model.ToolCallingChatModel, error) {
	maxTokens := config.MaxTokens
	temperature := config.Temperature

	switch config.Provider {
	case ProviderOpenAI, "":
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			Timeout:     config.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai chat model: %w", err)
		}
		return cm, nil

	case ProviderArk:
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		return cm, nil

	case ProviderDeepSeek:
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Timeout:     config.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek chat model: %w", err)
		}
		return cm, nil

	case ProviderOllama:
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   config.Model,
			Timeout: config.Timeout,
			Options: &api.Options{
				Temperature: temperature,
				NumPredict:  maxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama chat model: %w", err)
		}
		return cm, nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", config.Provider)
	}
}

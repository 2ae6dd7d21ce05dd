package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/potatobot-core/server/internal/agent/model"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for response model creation.
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	RespConfig *model.ResponseModelConfig
}

// NewResponseChatModel creates the OpenAI-compatible response model. The stop
// sequence is a single newline so the model produces one single-line reply
// and cannot hallucinate subsequent turns; logprobs are requested for the
// generation trace.
func NewResponseChatModel(ctx context.Context, config ChatModelConfig) (*openai.ChatModel, error) {
	if config.RespConfig == nil {
		return nil, fmt.Errorf("response model config is nil")
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      config.APIKey,
		BaseURL:     config.BaseURL,
		Model:       config.RespConfig.Model,
		Temperature: ptr(config.RespConfig.Temperature),
		MaxTokens:   ptr(config.RespConfig.MaxTokens),
		Stop:        []string{"\n"},
		// ChatModelConfig.LogProbs is only available in eino-ext openai
		// versions newer than the proxy provides; ExtraFields sets the same
		// "logprobs" field on the wire request.
		ExtraFields: map[string]any{"logprobs": true},
		Timeout:     time.Duration(config.RespConfig.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return cm, nil
}

func ptr[T any](v T) *T {
	return &v
}

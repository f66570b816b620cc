package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashareq/tradeflow/internal/config"
)

// OpenAIClient adapts the eino OpenAI chat model to the Client contract.
// Any OpenAI-compatible endpoint works through BackendURL.
type OpenAIClient struct {
	chatModel *openai.ChatModel
}

func NewOpenAIClient(ctx context.Context, cfg *config.Config) (*OpenAIClient, error) {
	maxTokens := 8192
	mcfg := &openai.ChatModelConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: &maxTokens,
	}
	if cfg.BackendURL != "" {
		mcfg.BaseURL = cfg.BackendURL
	}
	chatModel, err := openai.NewChatModel(ctx, mcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return &OpenAIClient{chatModel: chatModel}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	var opts []model.Option
	if len(tools) > 0 {
		opts = append(opts, model.WithTools(tools))
	}
	msg, err := c.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return msg, nil
}

// classifyProviderError folds raw provider failures into the package
// taxonomy so the retry wrapper can decide without string matching twice.
func classifyProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "invalid api key"), strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "400"):
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashareq/tradeflow/internal/config"
)

// DeepSeekClient adapts the eino DeepSeek chat model to the Client contract.
type DeepSeekClient struct {
	chatModel *deepseek.ChatModel
}

func NewDeepSeekClient(ctx context.Context, cfg *config.Config) (*DeepSeekClient, error) {
	mcfg := &deepseek.ChatModelConfig{
		APIKey:    cfg.DeepSeekAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: 8192,
	}
	if cfg.BackendURL != "" {
		mcfg.BaseURL = cfg.BackendURL
	}
	chatModel, err := deepseek.NewChatModel(ctx, mcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return &DeepSeekClient{chatModel: chatModel}, nil
}

func (c *DeepSeekClient) Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
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

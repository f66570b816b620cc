package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/ashareq/tradeflow/internal/config"
)

// Error taxonomy for completion calls. Timeout and Unavailable are
// transient and retried by the Retrying wrapper; Permanent errors (auth,
// malformed request) are surfaced immediately.
var (
	ErrTimeout     = errors.New("llm: completion timed out")
	ErrUnavailable = errors.New("llm: provider unavailable")
	ErrPermanent   = errors.New("llm: permanent provider error")
)

// Transient reports whether an error is worth retrying.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Client is the completion contract every stage talks through. When tools
// are passed the returned message may carry tool calls instead of content;
// callers resolve those against the static capability table.
type Client interface {
	Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)
}

// Provider names accepted by NewClient.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
)

// NewClient builds the configured provider client. The result is not
// wrapped; callers compose NewRetrying around it.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrPermanent)
		}
		return NewOpenAIClient(ctx, cfg)
	case ProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("%w: DEEPSEEK_API_KEY is required for the deepseek provider", ErrPermanent)
		}
		return NewDeepSeekClient(ctx, cfg)
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q (valid: openai, deepseek, mock)", ErrPermanent, cfg.LLMProvider)
	}
}

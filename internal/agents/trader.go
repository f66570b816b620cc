package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/dataflows"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
)

// Trader produces the final trade plan from the research thesis, the
// risk verdict and the analyst reports. It runs last, after both judges.
type Trader struct {
	client  llm.Client
	fetcher dataflows.Fetcher
	logger  *zap.Logger
}

func NewTrader(client llm.Client, fetcher dataflows.Fetcher, logger *zap.Logger) *Trader {
	return &Trader{client: client, fetcher: fetcher, logger: logger}
}

func (t *Trader) Plan(ctx context.Context, state *models.AnalysisState, domains []string) (string, error) {
	cur := models.MarketCurrency(state.Symbol)
	lastPrice := "(unavailable)"
	if t.fetcher != nil {
		if q, err := t.fetcher.LastQuote(ctx, state.Symbol); err == nil && q != nil {
			lastPrice = fmt.Sprintf("%s%s", q.Currency.Symbol(), q.Last.StringFixed(2))
		} else if err != nil {
			t.logger.Warn("trader quote lookup failed", zap.String("symbol", state.Symbol), zap.Error(err))
		}
	}

	vars := map[string]any{
		"ticker":        state.Symbol,
		"trade_date":    state.Date,
		"currency_hint": fmt.Sprintf("%s (%s)", cur, cur.Symbol()),
		"last_price":    lastPrice,
		"judge_verdict": emptyFallback(state.Debate.JudgeVerdict, "(no research verdict available)"),
		"risk_verdict":  emptyFallback(state.RiskDebate.JudgeVerdict, "(no risk verdict available)"),
		"reports":       formatReports(state, domains),
		"past_lessons":  formatEpisodes(state.Episodes),
	}

	msgs, err := buildMessages(ctx, "trader/trader", "Write the trade plan now.", vars)
	if err != nil {
		return "", err
	}

	msg, err := t.client.Complete(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("agents: trader returned an empty plan")
	}
	return msg.Content, nil
}

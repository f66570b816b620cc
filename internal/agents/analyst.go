package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/dataflows"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
	"github.com/ashareq/tradeflow/internal/tools"
)

// Analyst produces one domain report. Data is pre-fetched into the prompt
// and the domain's capability table is offered for follow-up tool calls,
// bounded by maxToolSteps.
type Analyst struct {
	domain       string
	client       llm.Client
	fetcher      dataflows.Fetcher
	registry     *tools.Registry
	maxToolSteps int
	logger       *zap.Logger
}

func NewAnalyst(domain string, client llm.Client, fetcher dataflows.Fetcher, maxToolSteps int, logger *zap.Logger) *Analyst {
	if maxToolSteps <= 0 {
		maxToolSteps = 6
	}
	return &Analyst{
		domain:       domain,
		client:       client,
		fetcher:      fetcher,
		registry:     tools.Catalog(domain, fetcher),
		maxToolSteps: maxToolSteps,
		logger:       logger,
	}
}

func (a *Analyst) Domain() string { return a.domain }

func (a *Analyst) Run(ctx context.Context, state *models.AnalysisState) (string, error) {
	data, err := a.fetcher.FetchAnalystData(ctx, state.Symbol, a.domain)
	if err != nil {
		a.logger.Warn("analyst pre-fetch failed, relying on tools",
			zap.String("domain", a.domain), zap.Error(err))
		data = "(no pre-fetched data; use the available tools)"
	}

	msgs, err := buildMessages(ctx, "analysts/"+a.domain,
		"Write your report now.",
		map[string]any{
			"ticker":      state.Symbol,
			"trade_date":  state.Date,
			"market_data": data,
		})
	if err != nil {
		return "", err
	}

	infos := a.registry.Infos()
	for step := 0; step <= a.maxToolSteps; step++ {
		msg, err := a.client.Complete(ctx, msgs, infos)
		if err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 {
			if strings.TrimSpace(msg.Content) == "" {
				return "", fmt.Errorf("agents: %s analyst returned an empty report", a.domain)
			}
			return msg.Content, nil
		}

		msgs = append(msgs, msg)
		for _, call := range msg.ToolCalls {
			out, terr := a.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
			if terr != nil {
				out = fmt.Sprintf("tool %s failed: %v", call.Function.Name, terr)
			}
			msgs = append(msgs, schema.ToolMessage(out, call.ID))
		}
	}
	return "", fmt.Errorf("agents: %s analyst exhausted its tool budget without a report", a.domain)
}

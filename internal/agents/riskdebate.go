package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
)

// RiskDebater is one of the three round-robin risk roles.
type RiskDebater struct {
	role   string
	client llm.Client
}

func NewRiskDebater(role string, client llm.Client) (*RiskDebater, error) {
	switch role {
	case consts.AggressiveDebater, consts.ConservativeDebater, consts.NeutralDebater:
		return &RiskDebater{role: role, client: client}, nil
	default:
		return nil, fmt.Errorf("agents: unknown risk role %q", role)
	}
}

func (d *RiskDebater) Role() string { return d.role }

// Argue produces the debater's next turn over the investment thesis.
func (d *RiskDebater) Argue(ctx context.Context, state *models.AnalysisState, domains []string) (string, error) {
	msgs, err := buildMessages(ctx, "risk/"+d.role,
		"Deliver your next debate turn.",
		map[string]any{
			"ticker":        state.Symbol,
			"judge_verdict": emptyFallback(state.Debate.JudgeVerdict, "(no research verdict available)"),
			"reports":       formatReports(state, domains),
			"history":       emptyFallback(state.RiskDebate.Transcript(), "(the risk debate has not started)"),
		})
	if err != nil {
		return "", err
	}

	msg, err := d.client.Complete(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("agents: %s debater returned an empty argument", d.role)
	}
	return msg.Content, nil
}

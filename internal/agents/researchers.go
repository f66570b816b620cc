package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
)

// Researcher is one side of the bull/bear debate.
type Researcher struct {
	role   string
	client llm.Client
}

func NewResearcher(role string, client llm.Client) (*Researcher, error) {
	if role != consts.BullResearcher && role != consts.BearResearcher {
		return nil, fmt.Errorf("agents: unknown researcher role %q", role)
	}
	return &Researcher{role: role, client: client}, nil
}

func (r *Researcher) Role() string { return r.role }

// Argue produces the researcher's next turn from the reports, the debate
// transcript so far, and the opponent's latest argument.
func (r *Researcher) Argue(ctx context.Context, state *models.AnalysisState, domains []string) (string, error) {
	opponentRole := consts.BearResearcher
	if r.role == consts.BearResearcher {
		opponentRole = consts.BullResearcher
	}
	opponent := "(the opponent has not spoken yet)"
	if last := state.Debate.LastTurn(); last != nil && last.Role == opponentRole {
		opponent = last.Content
	}

	msgs, err := buildMessages(ctx, "researchers/"+r.role,
		"Deliver your next debate turn.",
		map[string]any{
			"ticker":       state.Symbol,
			"reports":      formatReports(state, domains),
			"history":      emptyFallback(state.Debate.Transcript(), "(the debate has not started)"),
			"own_history":  emptyFallback(state.Debate.HistoryFor(r.role), "(you have not spoken yet)"),
			"opponent":     opponent,
			"past_lessons": formatEpisodes(state.Episodes),
		})
	if err != nil {
		return "", err
	}

	msg, err := r.client.Complete(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("agents: %s researcher returned an empty argument", r.role)
	}
	return msg.Content, nil
}

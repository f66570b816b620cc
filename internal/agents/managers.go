package agents

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
)

// Judge turns a finished debate into a verdict. The research manager
// judges the bull/bear transcript, the risk manager the three-way risk
// transcript; both are arbiters, the orchestrator never averages analyst
// outputs itself.
type Judge struct {
	promptPath string
	risk       bool
	client     llm.Client
}

func NewResearchJudge(client llm.Client) *Judge {
	return &Judge{promptPath: "managers/research_manager", client: client}
}

func NewRiskJudge(client llm.Client) *Judge {
	return &Judge{promptPath: "managers/risk_manager", risk: true, client: client}
}

func (j *Judge) Decide(ctx context.Context, state *models.AnalysisState, domains []string) (string, error) {
	vars := map[string]any{
		"ticker":       state.Symbol,
		"reports":      formatReports(state, domains),
		"past_lessons": formatEpisodes(state.Episodes),
	}
	if j.risk {
		vars["history"] = emptyFallback(state.RiskDebate.Transcript(), "(the risk debate produced no turns)")
		vars["judge_verdict"] = emptyFallback(state.Debate.JudgeVerdict, "(no research verdict available)")
	} else {
		vars["history"] = emptyFallback(state.Debate.Transcript(), "(the debate produced no turns)")
	}

	msgs, err := buildMessages(ctx, j.promptPath, "Deliver your verdict now.", vars)
	if err != nil {
		return "", err
	}

	msg, err := j.client.Complete(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("agents: judge %s returned an empty verdict", j.promptPath)
	}
	return msg.Content, nil
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]{5,}`)

var stopwords = map[string]bool{
	"about": true, "after": true, "their": true, "there": true, "these": true,
	"those": true, "which": true, "would": true, "could": true, "should": true,
	"report": true, "analysis": true, "market": true, "stock": true, "price": true,
	"recent": true, "against": true, "because": true, "where": true, "while": true,
}

// topKeywords picks the most frequent distinctive tokens of a report,
// the anchors used by the verdict presence check.
func topKeywords(report string, n int) []string {
	counts := map[string]int{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(report), -1) {
		if stopwords[w] {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// VerdictCoversDomains checks that a verdict references at least one
// concrete token from each consulted analyst report. Purely lexical;
// placeholder or empty reports are skipped.
func VerdictCoversDomains(verdict string, state *models.AnalysisState, domains []string) bool {
	lowered := strings.ToLower(verdict)
	for _, d := range domains {
		report := state.Report(d)
		if strings.TrimSpace(report) == "" || strings.HasPrefix(report, "[") {
			continue
		}
		keywords := topKeywords(report, 8)
		if len(keywords) == 0 || strings.Contains(lowered, d) {
			continue
		}
		found := false
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

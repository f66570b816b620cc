// Package agents holds the LLM-backed pipeline stages: the four domain
// analysts, the bull/bear researchers and their judge, the three risk
// debaters and theirs, and the trader. Stages are plain structs driven by
// the orchestrator; none of them routes or loops on its own.
package agents

import (
	"fmt"
	"strings"

	"github.com/ashareq/tradeflow/internal/models"
)

// formatReports renders the analyst reports consulted for this run, keyed
// by domain, for inclusion in judge and debater prompts.
func formatReports(state *models.AnalysisState, domains []string) string {
	var b strings.Builder
	for _, d := range domains {
		report := state.Report(d)
		if strings.TrimSpace(report) == "" {
			continue
		}
		fmt.Fprintf(&b, "### %s report\n%s\n\n", d, report)
	}
	if b.Len() == 0 {
		return "(no analyst reports available)"
	}
	return strings.TrimSpace(b.String())
}

// formatEpisodes renders retrieved memory episodes as numbered lessons.
func formatEpisodes(episodes []models.Episode) string {
	if len(episodes) == 0 {
		return "(no comparable past trades on record)"
	}
	var b strings.Builder
	for i, ep := range episodes {
		outcome := "lost"
		if ep.Outcome.Success {
			outcome = "made"
		}
		fmt.Fprintf(&b, "%d. %s (%s %.1f%% on %s): %s\n",
			i+1, ep.Lesson, outcome, ep.Outcome.Return*100, ep.Symbol, ep.CreatedAt.Format("2006-01-02"))
	}
	return strings.TrimSpace(b.String())
}

func emptyFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

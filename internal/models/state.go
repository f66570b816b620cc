package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase is the orchestrator's position in the pipeline state machine.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseAnalystsRunning Phase = "analysts_running"
	PhaseBullBearDebate  Phase = "bull_bear_debate"
	PhaseResearchJudged  Phase = "research_judged"
	PhaseRiskDebate      Phase = "risk_debate"
	PhaseRiskJudged      Phase = "risk_judged"
	PhaseTrader          Phase = "trader"
	PhaseSignalExtracted Phase = "signal_extracted"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// Turn is a single utterance in a debate transcript.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DebateState carries the transcript of one bounded adversarial exchange.
// The same shape serves the two-role bull/bear debate and the three-role
// risk debate; RoleCount fixes the hard cap len(Turns) <= RoleCount*MaxRounds.
type DebateState struct {
	Turns        []Turn `json:"turns"`
	Round        int    `json:"round"`
	MaxRounds    int    `json:"max_rounds"`
	RoleCount    int    `json:"role_count"`
	JudgeVerdict string `json:"judge_verdict,omitempty"`
}

func NewDebateState(roleCount, maxRounds int) *DebateState {
	return &DebateState{
		Turns:     make([]Turn, 0, roleCount*maxRounds),
		RoleCount: roleCount,
		MaxRounds: maxRounds,
	}
}

// Append records one turn and advances the round counter once every
// RoleCount turns. It refuses to grow past the cap; the orchestrator's loop
// bound makes that unreachable, this keeps the invariant structural.
func (d *DebateState) Append(role, content string) bool {
	if len(d.Turns) >= d.RoleCount*d.MaxRounds {
		return false
	}
	d.Turns = append(d.Turns, Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if len(d.Turns)%d.RoleCount == 0 {
		d.Round++
	}
	return true
}

// Exhausted reports whether the round cap has been reached.
func (d *DebateState) Exhausted() bool {
	return len(d.Turns) >= d.RoleCount*d.MaxRounds
}

// Transcript renders the full debate history in speaking order.
func (d *DebateState) Transcript() string {
	var b strings.Builder
	for _, t := range d.Turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// HistoryFor renders only the turns spoken by one role.
func (d *DebateState) HistoryFor(role string) string {
	var b strings.Builder
	for _, t := range d.Turns {
		if t.Role != role {
			continue
		}
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// LastTurn returns the most recent turn, or nil for an empty transcript.
func (d *DebateState) LastTurn() *Turn {
	if len(d.Turns) == 0 {
		return nil
	}
	return &d.Turns[len(d.Turns)-1]
}

// AnalysisState is the append-only accumulator owned by a single Propagate
// call. Each stage writes only its designated fields.
type AnalysisState struct {
	RunID  string `json:"run_id"`
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Phase  Phase  `json:"phase"`

	MarketReport       string `json:"market_report"`
	FundamentalsReport string `json:"fundamentals_report"`
	NewsReport         string `json:"news_report"`
	SentimentReport    string `json:"sentiment_report"`

	Debate     *DebateState `json:"debate_state"`
	RiskDebate *DebateState `json:"risk_debate_state"`

	TraderPlan  string  `json:"trader_plan"`
	FinalSignal *Signal `json:"final_signal,omitempty"`

	// Episodes retrieved from the memory store for this run, best effort.
	Episodes []Episode `json:"episodes,omitempty"`
}

func NewAnalysisState(symbol, date string, maxDebateRounds, maxRiskRounds int) *AnalysisState {
	return &AnalysisState{
		RunID:      uuid.NewString(),
		Symbol:     symbol,
		Date:       date,
		Phase:      PhaseInit,
		Debate:     NewDebateState(2, maxDebateRounds),
		RiskDebate: NewDebateState(3, maxRiskRounds),
	}
}

// Report returns the report text for an analyst domain, empty if unset.
func (s *AnalysisState) Report(domain string) string {
	switch domain {
	case "market":
		return s.MarketReport
	case "fundamentals":
		return s.FundamentalsReport
	case "news":
		return s.NewsReport
	case "sentiment":
		return s.SentimentReport
	}
	return ""
}

// SetReport writes the report for an analyst domain. Unknown domains are
// dropped; the config validator rejects them before the pipeline starts.
func (s *AnalysisState) SetReport(domain, report string) {
	switch domain {
	case "market":
		s.MarketReport = report
	case "fundamentals":
		s.FundamentalsReport = report
	case "news":
		s.NewsReport = report
	case "sentiment":
		s.SentimentReport = report
	}
}

// Situation joins all populated analyst reports, used both as judge context
// and as the text embedded for memory retrieval.
func (s *AnalysisState) Situation() string {
	parts := make([]string, 0, 4)
	for _, r := range []string{s.MarketReport, s.FundamentalsReport, s.NewsReport, s.SentimentReport} {
		if strings.TrimSpace(r) != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n\n")
}

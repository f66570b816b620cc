package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
)

type stubFetcher struct {
	data  map[string]string
	err   error
	quote *models.Quote
}

func (s *stubFetcher) FetchAnalystData(_ context.Context, _, domain string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.data[domain], nil
}

func (s *stubFetcher) LastQuote(_ context.Context, _ string) (*models.Quote, error) {
	if s.quote == nil {
		return nil, errors.New("no quote")
	}
	return s.quote, nil
}

func newTestState() *models.AnalysisState {
	return models.NewAnalysisState("600519", "2025-06-02", 2, 1)
}

func TestAnalystRun(t *testing.T) {
	client := llm.NewMockClient().
		Respond("candles", "Momentum is fading; the 50-day average rolled over.")
	fetcher := &stubFetcher{data: map[string]string{consts.MarketAnalyst: "daily candles attached"}}

	a := NewAnalyst(consts.MarketAnalyst, client, fetcher, 6, zap.NewNop())
	report, err := a.Run(context.Background(), newTestState())
	require.NoError(t, err)
	assert.Contains(t, report, "Momentum is fading")
}

func TestAnalystRunDegradedPrefetch(t *testing.T) {
	client := llm.NewMockClient().
		Respond("no pre-fetched data", "Working from tools only; no strong signal either way.")
	fetcher := &stubFetcher{err: errors.New("upstream down")}

	a := NewAnalyst(consts.MarketAnalyst, client, fetcher, 6, zap.NewNop())
	report, err := a.Run(context.Background(), newTestState())
	require.NoError(t, err)
	assert.Contains(t, report, "no strong signal")
}

func TestAnalystEmptyReport(t *testing.T) {
	client := llm.NewMockClient().SetDefault("")
	fetcher := &stubFetcher{data: map[string]string{consts.MarketAnalyst: "data"}}

	a := NewAnalyst(consts.MarketAnalyst, client, fetcher, 6, zap.NewNop())
	_, err := a.Run(context.Background(), newTestState())
	assert.Error(t, err)
}

func TestResearcherSeesOpponent(t *testing.T) {
	client := llm.NewMockClient().
		Respond("valuation is stretched", "The bear overstates the multiple; growth covers it.")

	state := newTestState()
	state.SetReport(consts.MarketAnalyst, "Uptrend intact.")
	state.Debate.Append(consts.BearResearcher, "The valuation is stretched at 40x earnings.")

	bull, err := NewResearcher(consts.BullResearcher, client)
	require.NoError(t, err)
	turn, err := bull.Argue(context.Background(), state, []string{consts.MarketAnalyst})
	require.NoError(t, err)
	assert.Contains(t, turn, "growth covers it")
}

func TestResearcherSeesOwnHistory(t *testing.T) {
	client := llm.NewMockClient().
		Respond("you have not spoken yet", "Opening bull case: margins are expanding.").
		SetDefault("Second bull turn.")

	state := newTestState()
	state.Debate.Append(consts.BearResearcher, "The valuation is stretched at 40x earnings.")

	bull, err := NewResearcher(consts.BullResearcher, client)
	require.NoError(t, err)

	// Before the bull has spoken its prompt carries the placeholder.
	turn, err := bull.Argue(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, turn, "Opening bull case")

	// Once it has, the placeholder is replaced by its own prior turns.
	state.Debate.Append(consts.BullResearcher, turn)
	state.Debate.Append(consts.BearResearcher, "Margins are cyclical.")
	turn, err = bull.Argue(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, "Second bull turn.", turn)
}

func TestResearcherUnknownRole(t *testing.T) {
	_, err := NewResearcher("janitor", llm.NewMockClient())
	assert.Error(t, err)
}

func TestRiskDebaterSeesThesis(t *testing.T) {
	client := llm.NewMockClient().
		Respond("FINAL STANCE: buy", "A full position is too much given the drawdown history.")

	state := newTestState()
	state.Debate.JudgeVerdict = "Strong thesis. FINAL STANCE: buy"

	d, err := NewRiskDebater(consts.ConservativeDebater, client)
	require.NoError(t, err)
	turn, err := d.Argue(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, turn, "too much")
}

func TestJudgeDecide(t *testing.T) {
	client := llm.NewMockClient().
		Respond("bull case rests on", "The bull wins on evidence. FINAL STANCE: buy")

	state := newTestState()
	state.Debate.Append(consts.BullResearcher, "The bull case rests on margin expansion.")
	state.Debate.Append(consts.BearResearcher, "Margins are cyclical.")

	verdict, err := NewResearchJudge(client).Decide(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, verdict, "FINAL STANCE: buy")
}

func TestRiskJudgeSeesResearchVerdict(t *testing.T) {
	client := llm.NewMockClient().
		Respond("FINAL STANCE: buy", "Half position, tight stop. FINAL STANCE: buy")

	state := newTestState()
	state.Debate.JudgeVerdict = "Thesis holds. FINAL STANCE: buy"
	state.RiskDebate.Append(consts.AggressiveDebater, "Go all in.")

	verdict, err := NewRiskJudge(client).Decide(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, verdict, "Half position")
}

func TestTraderPlanCarriesCurrencyAndPrice(t *testing.T) {
	client := llm.NewMockClient().
		Respond("CNY", "Buy a third at market. FINAL TRADE DECISION: **BUY**")
	fetcher := &stubFetcher{quote: &models.Quote{
		Symbol:   "600519",
		Last:     decimal.NewFromFloat(1680.50),
		Currency: models.CNY,
	}}

	state := newTestState()
	state.Debate.JudgeVerdict = "FINAL STANCE: buy"
	state.RiskDebate.JudgeVerdict = "FINAL STANCE: buy"

	tr := NewTrader(client, fetcher, zap.NewNop())
	plan, err := tr.Plan(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Contains(t, plan, "FINAL TRADE DECISION: **BUY**")
}

func TestTraderPlanWithoutQuote(t *testing.T) {
	client := llm.NewMockClient().
		Respond("(unavailable)", "No reliable price; stay flat. FINAL TRADE DECISION: **HOLD**")

	tr := NewTrader(client, &stubFetcher{}, zap.NewNop())
	plan, err := tr.Plan(context.Background(), newTestState(), nil)
	require.NoError(t, err)
	assert.Contains(t, plan, "**HOLD**")
}

func TestVerdictCoversDomains(t *testing.T) {
	state := newTestState()
	state.SetReport(consts.MarketAnalyst, "The moving average crossover signals continued strength.")
	state.SetReport(consts.NewsAnalyst, "[news analysis unavailable: upstream timeout]")

	assert.True(t, VerdictCoversDomains(
		"The crossover argues for staying long.",
		state, []string{consts.MarketAnalyst, consts.NewsAnalyst}))
	assert.False(t, VerdictCoversDomains(
		"Buy because vibes.",
		state, []string{consts.MarketAnalyst}))
	// placeholder reports never fail the check
	assert.True(t, VerdictCoversDomains("anything", state, []string{consts.NewsAnalyst}))
}

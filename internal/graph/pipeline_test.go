package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/models"
	"github.com/ashareq/tradeflow/internal/processing"
)

type stubFetcher struct {
	data  map[string]string
	quote *models.Quote
}

func (s *stubFetcher) FetchAnalystData(_ context.Context, _, domain string) (string, error) {
	if s.data == nil {
		return "", errors.New("no data")
	}
	return s.data[domain], nil
}

func (s *stubFetcher) LastQuote(_ context.Context, _ string) (*models.Quote, error) {
	if s.quote == nil {
		return nil, errors.New("no quote")
	}
	return s.quote, nil
}

// domainFailClient fails any completion whose prompt carries the marker,
// simulating one analyst whose provider is down.
type domainFailClient struct {
	inner  llm.Client
	marker string
}

func (c *domainFailClient) Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	for _, m := range messages {
		if strings.Contains(m.Content, c.marker) {
			return nil, llm.ErrUnavailable
		}
	}
	return c.inner.Complete(ctx, messages, tools)
}

// blockedClient never answers before its context expires.
type blockedClient struct{}

func (blockedClient) Complete(ctx context.Context, _ []*schema.Message, _ []*schema.ToolInfo) (*schema.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type captureRecorder struct {
	state *models.AnalysisState
	sig   *models.Signal
}

func (r *captureRecorder) RecordRun(state *models.AnalysisState, sig *models.Signal) error {
	r.state, r.sig = state, sig
	return nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Analysts:        append([]string(nil), consts.AllAnalysts...),
		MaxDebateRounds: 2,
		MaxRiskRounds:   1,
		StageTimeout:    2 * time.Second,
		PipelineBudget:  30 * time.Second,
	}
}

func allData() map[string]string {
	return map[string]string{
		consts.MarketAnalyst:       "candles look fine",
		consts.FundamentalsAnalyst: "balance sheet solid",
		consts.NewsAnalyst:         "quiet news week",
		consts.SentimentAnalyst:    "chatter is neutral",
	}
}

func newPipeline(client llm.Client, fetcher *stubFetcher, opts ...Option) *Pipeline {
	cfg := &config.Config{FallbackEstimatePct: 0.10, NeutralConfidence: 0.5}
	return New(client, fetcher, nil, processing.NewExtractor(cfg, zap.NewNop()), zap.NewNop(), opts...)
}

func TestPropagateInvalidConfig(t *testing.T) {
	p := newPipeline(llm.NewMockClient(), &stubFetcher{})
	pcfg := testConfig()
	pcfg.MaxDebateRounds = 0

	state, sig := p.Propagate(context.Background(), "AAPL", "2025-06-02", pcfg)
	assert.Equal(t, models.PhaseFailed, state.Phase)
	require.NotNil(t, sig)
	assert.True(t, sig.IsError)
	assert.Contains(t, sig.ErrorMessage, "max_debate_rounds")
}

func TestPropagateInvalidDate(t *testing.T) {
	p := newPipeline(llm.NewMockClient(), &stubFetcher{data: allData()})

	state, sig := p.Propagate(context.Background(), "AAPL", "02/06/2025", testConfig())
	assert.Equal(t, models.PhaseFailed, state.Phase)
	assert.True(t, sig.IsError)
	assert.Contains(t, sig.ErrorMessage, "YYYY-MM-DD")
}

func TestPropagateHappyPath(t *testing.T) {
	client := llm.NewMockClient()
	rec := &captureRecorder{}
	p := newPipeline(client, &stubFetcher{data: allData()}, WithRecorder(rec))

	state, sig := p.Propagate(context.Background(), "600519", "2025-06-02", testConfig())

	assert.Equal(t, models.PhaseDone, state.Phase)
	require.NotNil(t, sig)
	assert.False(t, sig.IsError)
	assert.Equal(t, models.DirectionHold, sig.Direction)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)

	for _, d := range consts.AllAnalysts {
		assert.NotEmpty(t, state.Report(d), d)
	}
	assert.NotEmpty(t, state.Debate.JudgeVerdict)
	assert.NotEmpty(t, state.RiskDebate.JudgeVerdict)
	assert.NotEmpty(t, state.TraderPlan)
	assert.Same(t, state, rec.state)
	assert.Same(t, sig, rec.sig)
}

func TestPropagateLogsStageRoles(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := &config.Config{FallbackEstimatePct: 0.10, NeutralConfidence: 0.5}
	p := New(llm.NewMockClient(), &stubFetcher{data: allData()}, nil,
		processing.NewExtractor(cfg, zap.NewNop()), zap.New(core))

	_, sig := p.Propagate(context.Background(), "600519", "2025-06-02", testConfig())
	require.False(t, sig.IsError)

	roles := make(map[string]bool)
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			if f.Key == "role" {
				roles[f.String] = true
			}
		}
	}
	assert.True(t, roles[consts.ResearchManager])
	assert.True(t, roles[consts.RiskManager])
	assert.True(t, roles[consts.Trader])
}

func TestPropagateRoundCaps(t *testing.T) {
	p := newPipeline(llm.NewMockClient(), &stubFetcher{data: allData()})
	pcfg := testConfig()
	pcfg.MaxDebateRounds = 2
	pcfg.MaxRiskRounds = 1

	state, _ := p.Propagate(context.Background(), "AAPL", "2025-06-02", pcfg)

	assert.LessOrEqual(t, len(state.Debate.Turns), 2*pcfg.MaxDebateRounds)
	assert.Equal(t, 2*pcfg.MaxDebateRounds, len(state.Debate.Turns))
	assert.LessOrEqual(t, len(state.RiskDebate.Turns), 3*pcfg.MaxRiskRounds)
	assert.Equal(t, 3*pcfg.MaxRiskRounds, len(state.RiskDebate.Turns))

	// bull speaks first and the two alternate
	require.NotEmpty(t, state.Debate.Turns)
	assert.Equal(t, consts.BullResearcher, state.Debate.Turns[0].Role)
	assert.Equal(t, consts.BearResearcher, state.Debate.Turns[1].Role)
	assert.Equal(t, consts.AggressiveDebater, state.RiskDebate.Turns[0].Role)
}

func TestPropagateSingleDomainDegrades(t *testing.T) {
	data := allData()
	data[consts.NewsAnalyst] = "NEWS_PROVIDER_DOWN_MARKER"
	client := &domainFailClient{inner: llm.NewMockClient(), marker: "NEWS_PROVIDER_DOWN_MARKER"}
	p := newPipeline(client, &stubFetcher{data: data})

	state, sig := p.Propagate(context.Background(), "AAPL", "2025-06-02", testConfig())

	assert.Equal(t, models.PhaseDone, state.Phase)
	assert.False(t, sig.IsError)
	assert.Contains(t, state.NewsReport, "[news analysis unavailable:")
	assert.NotContains(t, state.MarketReport, "unavailable")
	assert.NotContains(t, state.FundamentalsReport, "unavailable")
	assert.NotContains(t, state.SentimentReport, "unavailable")
}

func TestPropagateBudgetBreach(t *testing.T) {
	p := newPipeline(blockedClient{}, &stubFetcher{data: allData()})
	pcfg := testConfig()
	pcfg.StageTimeout = 50 * time.Millisecond
	pcfg.PipelineBudget = 80 * time.Millisecond

	state, sig := p.Propagate(context.Background(), "AAPL", "2025-06-02", pcfg)

	assert.Equal(t, models.PhaseFailed, state.Phase)
	require.NotNil(t, sig)
	assert.True(t, sig.IsError)
	assert.NotEmpty(t, sig.ErrorMessage)
	// analysts finished (degraded) before the budget tripped
	for _, d := range consts.AllAnalysts {
		assert.Contains(t, state.Report(d), "unavailable")
	}
}

func TestPropagateNeverPanicsOnNilMemory(t *testing.T) {
	p := newPipeline(llm.NewMockClient(), &stubFetcher{data: allData()})
	pcfg := testConfig()
	pcfg.UseMemory = true

	state, sig := p.Propagate(context.Background(), "AAPL", "2025-06-02", pcfg)
	assert.Equal(t, models.PhaseDone, state.Phase)
	assert.False(t, sig.IsError)
	assert.Empty(t, state.Episodes)
}

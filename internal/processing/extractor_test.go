package processing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/models"
)

func newExtractor() *Extractor {
	cfg := &config.Config{FallbackEstimatePct: 0.10, NeutralConfidence: 0.5}
	return NewExtractor(cfg, zap.NewNop())
}

func price(amount float64, cur models.Currency) *models.Price {
	return &models.Price{Amount: decimal.NewFromFloat(amount), Currency: cur}
}

func TestExtractExplicitPricesCN(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"基本面强劲，建议买入。目标价位：200美元，止损价位：170美元。", nil)

	assert.Equal(t, models.DirectionLong, sig.Direction)
	require.NotNil(t, sig.TargetPrice)
	assert.Equal(t, "200", sig.TargetPrice.Amount.String())
	assert.Equal(t, models.USD, sig.TargetPrice.Currency)
	require.NotNil(t, sig.StopLossPrice)
	assert.Equal(t, "170", sig.StopLossPrice.Amount.String())
	assert.Equal(t, models.USD, sig.StopLossPrice.Currency)
	assert.False(t, sig.Estimated)
	assert.False(t, sig.IsError)
}

func TestExtractPercentageEstimation(t *testing.T) {
	sig := newExtractor().Extract("0700.HK", "预期上涨15%", price(320, models.HKD))

	require.NotNil(t, sig.TargetPrice)
	f, _ := sig.TargetPrice.Amount.Float64()
	assert.InDelta(t, 368.0, f, 0.01)
	assert.Equal(t, models.HKD, sig.TargetPrice.Currency)
	assert.True(t, sig.Estimated)
}

func TestExtractFallbackEstimate(t *testing.T) {
	sig := newExtractor().Extract("600519",
		"FINAL TRADE DECISION: **BUY** the dip.", price(1680, models.CNY))

	assert.Equal(t, models.DirectionLong, sig.Direction)
	require.NotNil(t, sig.TargetPrice)
	f, _ := sig.TargetPrice.Amount.Float64()
	assert.InDelta(t, 1848.0, f, 0.01) // 1680 * 1.10
	assert.Equal(t, models.CNY, sig.TargetPrice.Currency)
	assert.True(t, sig.Estimated)
}

func TestExtractGarbage(t *testing.T) {
	for _, narrative := range []string{"", "qwe asd zxc 12 --", "%%%%"} {
		sig := newExtractor().Extract("AAPL", narrative, nil)
		assert.Equal(t, models.DirectionHold, sig.Direction)
		assert.Equal(t, 0.5, sig.Confidence)
		assert.Equal(t, 0.5, sig.RiskScore)
		assert.True(t, sig.Estimated)
		assert.False(t, sig.IsError)
	}
}

func TestExtractConflictFinalDecisionWins(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"Early on I wanted to sell. After review: FINAL TRADE DECISION: **BUY**.", nil)
	assert.Equal(t, models.DirectionLong, sig.Direction)
}

func TestExtractConflictLastOccurrenceWins(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"Some would buy here, but the downtrend says sell.", nil)
	assert.Equal(t, models.DirectionShort, sig.Direction)
}

func TestExtractKeywordsMatchWholeWordsOnly(t *testing.T) {
	e := newExtractor()

	sig := e.Extract("AAPL", "Sell now; the upside belongs to shareholders.", nil)
	assert.Equal(t, models.DirectionShort, sig.Direction)

	sig = e.Extract("AAPL", "Hold for now while the buyback program continues.", nil)
	assert.Equal(t, models.DirectionHold, sig.Direction)

	// CJK keywords stay substring matches; there are no word boundaries.
	sig = e.Extract("600519", "综合各方观点建议买入。", nil)
	assert.Equal(t, models.DirectionLong, sig.Direction)
}

func TestExtractPercentAfterTargetIsAMoveNotAPrice(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"Buy. Price target: 15% above current levels.", price(200, models.USD))

	require.NotNil(t, sig.TargetPrice)
	f, _ := sig.TargetPrice.Amount.Float64()
	assert.InDelta(t, 230.0, f, 0.01)
	assert.True(t, sig.Estimated)

	// Without a quote the percentage cannot be resolved to a price.
	sig = newExtractor().Extract("AAPL",
		"Buy. Price target: 15% above current levels.", nil)
	assert.Nil(t, sig.TargetPrice)
}

func TestExtractLocaleKeywords(t *testing.T) {
	sig := newExtractor().Extract("600519", "综合判断，最终决定：卖出。", nil)
	assert.Equal(t, models.DirectionShort, sig.Direction)
}

func TestExtractConfidenceAndRisk(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"Buy. Confidence: 80%. Risk level: 30%.", nil)
	assert.InDelta(t, 0.8, sig.Confidence, 0.001)
	assert.InDelta(t, 0.3, sig.RiskScore, 0.001)
}

func TestExtractScoresAlwaysBounded(t *testing.T) {
	sig := newExtractor().Extract("AAPL",
		"Buy with confidence 250% and risk 900%.", nil)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
	assert.GreaterOrEqual(t, sig.RiskScore, 0.0)
	assert.LessOrEqual(t, sig.RiskScore, 1.0)
}

func TestExtractJSONBlock(t *testing.T) {
	narrative := "Plan follows.\n```json\n{\"direction\": \"buy\", \"confidence\": 0.7, \"risk_score\": 0.4, \"target_price\": 210.5, \"position_size_pct\": 25}\n```"
	sig := newExtractor().Extract("AAPL", narrative, nil)

	assert.Equal(t, models.DirectionLong, sig.Direction)
	assert.InDelta(t, 0.7, sig.Confidence, 0.001)
	assert.InDelta(t, 0.4, sig.RiskScore, 0.001)
	require.NotNil(t, sig.TargetPrice)
	assert.Equal(t, models.USD, sig.TargetPrice.Currency)
	require.NotNil(t, sig.PositionSizePct)
	assert.InDelta(t, 0.25, *sig.PositionSizePct, 0.001)
	assert.False(t, sig.Estimated)
}

func TestExtractHKNeverYieldsCNY(t *testing.T) {
	sig := newExtractor().Extract("0700.HK",
		"买入。目标价 400。", price(320, models.HKD))
	require.NotNil(t, sig.TargetPrice)
	assert.NotEqual(t, models.CNY, sig.TargetPrice.Currency)
	assert.Equal(t, models.HKD, sig.TargetPrice.Currency)
}

func TestExtractDeterminism(t *testing.T) {
	e := newExtractor()
	narrative := "建议持有，风险水平 55%，目标价位：1800元。"
	a := e.Extract("600519", narrative, price(1680, models.CNY))
	b := e.Extract("600519", narrative, price(1680, models.CNY))
	assert.Equal(t, a, b)
}

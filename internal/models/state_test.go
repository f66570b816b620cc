package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebateStateCapIsStructural(t *testing.T) {
	d := NewDebateState(2, 2)
	for i := 0; i < 10; i++ {
		d.Append("bull", "turn")
	}
	assert.Len(t, d.Turns, 4)
	assert.True(t, d.Exhausted())
	assert.False(t, d.Append("bear", "over the cap"))

	r := NewDebateState(3, 1)
	for i := 0; i < 10; i++ {
		r.Append("aggressive", "turn")
	}
	assert.Len(t, r.Turns, 3)
}

func TestDebateStateRoundCounter(t *testing.T) {
	d := NewDebateState(2, 3)
	d.Append("bull", "a")
	assert.Equal(t, 0, d.Round)
	d.Append("bear", "b")
	assert.Equal(t, 1, d.Round)
	d.Append("bull", "c")
	d.Append("bear", "d")
	assert.Equal(t, 2, d.Round)
}

func TestHistoryForFiltersByRole(t *testing.T) {
	d := NewDebateState(2, 2)
	d.Append("bull", "margins are expanding")
	d.Append("bear", "valuation is stretched")
	d.Append("bull", "growth covers the multiple")

	bull := d.HistoryFor("bull")
	assert.Contains(t, bull, "margins are expanding")
	assert.Contains(t, bull, "growth covers the multiple")
	assert.NotContains(t, bull, "valuation is stretched")

	assert.Empty(t, d.HistoryFor("judge"))
}

func TestMarketCurrency(t *testing.T) {
	cases := map[string]Currency{
		"0700.HK":   HKD,
		"600519":    CNY,
		"600519.SH": CNY,
		"000001.SZ": CNY,
		"601318.SS": CNY,
		"AAPL":      USD,
		"BRK-B":     USD,
	}
	for symbol, want := range cases {
		assert.Equal(t, want, MarketCurrency(symbol), symbol)
	}
}

func TestSituationJoinsPopulatedReports(t *testing.T) {
	s := NewAnalysisState("AAPL", "2025-06-02", 1, 1)
	assert.Empty(t, s.Situation())
	s.SetReport("market", "uptrend")
	s.SetReport("news", "quiet")
	sit := s.Situation()
	assert.Contains(t, sit, "uptrend")
	assert.Contains(t, sit, "quiet")
}

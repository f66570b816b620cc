package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/models"
)

func TestRecordRun(t *testing.T) {
	dir := t.TempDir()
	rec := NewRunRecorder(dir, zap.NewNop())

	state := models.NewAnalysisState("0700.HK", "2025-06-02", 1, 1)
	state.Phase = models.PhaseDone
	state.MarketReport = "Trend intact."
	state.Debate.Append(consts.BullResearcher, "Cloud growth reaccelerating.")
	state.Debate.JudgeVerdict = "FINAL STANCE: buy"
	state.TraderPlan = "Buy a half position."

	sig := &models.Signal{
		Symbol:     "0700.HK",
		Direction:  models.DirectionLong,
		Confidence: 0.7,
		RiskScore:  0.4,
		Reasoning:  "Buy a half position.",
	}
	require.NoError(t, rec.RecordRun(state, sig))

	runDir := rec.RunDir("0700.HK", "2025-06-02")
	report, err := os.ReadFile(filepath.Join(runDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# 0700.HK on 2025-06-02")
	assert.Contains(t, string(report), "Direction: **long**")
	assert.Contains(t, string(report), "## Research Debate")

	raw, err := os.ReadFile(filepath.Join(runDir, "signal.json"))
	require.NoError(t, err)
	var decoded models.Signal
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, models.DirectionLong, decoded.Direction)
	assert.InDelta(t, 0.7, decoded.Confidence, 0.001)
}

func TestRecordRunSanitizesPath(t *testing.T) {
	rec := NewRunRecorder(t.TempDir(), zap.NewNop())
	state := models.NewAnalysisState("../evil", "2025-06-02", 1, 1)
	require.NoError(t, rec.RecordRun(state, models.ErrorSignal("../evil", "boom")))
	assert.NotContains(t, rec.RunDir("../evil", "2025-06-02"), "..")
}

func TestRecordRunNilState(t *testing.T) {
	rec := NewRunRecorder(t.TempDir(), zap.NewNop())
	assert.Error(t, rec.RecordRun(nil, nil))
}

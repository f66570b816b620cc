// Package storage persists finished runs to disk. Each run becomes a
// directory results/<symbol>/<date>/ holding a human-readable markdown
// report and the machine-readable signal JSON.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/models"
)

type RunRecorder struct {
	baseDir string
	logger  *zap.Logger
}

func NewRunRecorder(baseDir string, logger *zap.Logger) *RunRecorder {
	return &RunRecorder{baseDir: baseDir, logger: logger}
}

// RunDir returns the directory a run is written to.
func (r *RunRecorder) RunDir(symbol, date string) string {
	return filepath.Join(r.baseDir, sanitize(symbol), sanitize(date))
}

// RecordRun writes report.md and signal.json for a finished run.
// Existing files for the same symbol and date are overwritten.
func (r *RunRecorder) RecordRun(state *models.AnalysisState, sig *models.Signal) error {
	if state == nil {
		return errors.New("storage: nil state")
	}
	dir := r.RunDir(state.Symbol, state.Date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create run dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(renderReport(state, sig)), 0o644); err != nil {
		return fmt.Errorf("storage: write report: %w", err)
	}

	raw, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal signal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "signal.json"), raw, 0o644); err != nil {
		return fmt.Errorf("storage: write signal: %w", err)
	}

	r.logger.Info("run recorded", zap.String("dir", dir))
	return nil
}

func renderReport(state *models.AnalysisState, sig *models.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s on %s\n\n", state.Symbol, state.Date)
	fmt.Fprintf(&b, "Run `%s`, finished in phase `%s`.\n\n", state.RunID, state.Phase)

	if sig != nil {
		fmt.Fprintf(&b, "## Signal\n\n")
		fmt.Fprintf(&b, "- Direction: **%s**\n", sig.Direction)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", sig.Confidence)
		fmt.Fprintf(&b, "- Risk score: %.2f\n", sig.RiskScore)
		if sig.TargetPrice != nil {
			fmt.Fprintf(&b, "- Target: %s%s\n", sig.TargetPrice.Currency.Symbol(), sig.TargetPrice.Amount.StringFixed(2))
		}
		if sig.StopLossPrice != nil {
			fmt.Fprintf(&b, "- Stop loss: %s%s\n", sig.StopLossPrice.Currency.Symbol(), sig.StopLossPrice.Amount.StringFixed(2))
		}
		if sig.PositionSizePct != nil {
			fmt.Fprintf(&b, "- Position size: %.0f%%\n", *sig.PositionSizePct*100)
		}
		if sig.Estimated {
			b.WriteString("- Prices are estimated\n")
		}
		if sig.IsError {
			fmt.Fprintf(&b, "- Error: %s\n", sig.ErrorMessage)
		}
		b.WriteString("\n")
	}

	writeSection(&b, "Market Report", state.MarketReport)
	writeSection(&b, "Fundamentals Report", state.FundamentalsReport)
	writeSection(&b, "News Report", state.NewsReport)
	writeSection(&b, "Sentiment Report", state.SentimentReport)

	if state.Debate != nil && len(state.Debate.Turns) > 0 {
		writeSection(&b, "Research Debate", state.Debate.Transcript())
		writeSection(&b, "Research Verdict", state.Debate.JudgeVerdict)
	}
	if state.RiskDebate != nil && len(state.RiskDebate.Turns) > 0 {
		writeSection(&b, "Risk Debate", state.RiskDebate.Transcript())
		writeSection(&b, "Risk Verdict", state.RiskDebate.JudgeVerdict)
	}
	writeSection(&b, "Trade Plan", state.TraderPlan)
	return b.String()
}

func writeSection(b *strings.Builder, title, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, content)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	return replacer.Replace(s)
}

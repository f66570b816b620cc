// Package display renders pipeline results for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashareq/tradeflow/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(78)

	longStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	shortStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// Renderer writes styled results to a single destination, usually stdout.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// RenderSignal prints the final signal summary box.
func (r *Renderer) RenderSignal(sig *models.Signal) {
	if sig == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		labelStyle.Render("Symbol"), sig.Symbol)
	fmt.Fprintf(&b, "%s  %s\n",
		labelStyle.Render("Direction"), directionStyle(sig.Direction).Render(strings.ToUpper(string(sig.Direction))))
	fmt.Fprintf(&b, "%s  %.0f%%\n",
		labelStyle.Render("Confidence"), sig.Confidence*100)
	fmt.Fprintf(&b, "%s  %.0f%%\n",
		labelStyle.Render("Risk score"), sig.RiskScore*100)

	if sig.TargetPrice != nil {
		fmt.Fprintf(&b, "%s  %s%s%s\n",
			labelStyle.Render("Target"),
			sig.TargetPrice.Currency.Symbol(),
			sig.TargetPrice.Amount.StringFixed(2),
			estimateTag(sig.Estimated))
	}
	if sig.StopLossPrice != nil {
		fmt.Fprintf(&b, "%s  %s%s\n",
			labelStyle.Render("Stop loss"),
			sig.StopLossPrice.Currency.Symbol(),
			sig.StopLossPrice.Amount.StringFixed(2))
	}
	if sig.PositionSizePct != nil {
		fmt.Fprintf(&b, "%s  %.0f%%\n",
			labelStyle.Render("Position"), *sig.PositionSizePct*100)
	}
	if sig.IsError {
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render("error: "+sig.ErrorMessage))
	}

	fmt.Fprintln(r.out, titleStyle.Render("Trade Signal"))
	fmt.Fprintln(r.out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// RenderState prints a compact run summary: phase, debate sizes, verdicts.
func (r *Renderer) RenderState(state *models.AnalysisState) {
	if state == nil {
		return
	}
	fmt.Fprintln(r.out, titleStyle.Render(fmt.Sprintf("%s on %s", state.Symbol, state.Date)))
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("phase"), state.Phase)
	if state.Debate != nil {
		fmt.Fprintf(r.out, "%s %d turns, %d rounds\n",
			labelStyle.Render("research debate"), len(state.Debate.Turns), state.Debate.Round)
	}
	if state.RiskDebate != nil {
		fmt.Fprintf(r.out, "%s %d turns, %d rounds\n",
			labelStyle.Render("risk debate"), len(state.RiskDebate.Turns), state.RiskDebate.Round)
	}
	for _, section := range []struct{ title, body string }{
		{"research verdict", state.Debate.JudgeVerdict},
		{"risk verdict", state.RiskDebate.JudgeVerdict},
		{"trade plan", state.TraderPlan},
	} {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n%s\n", titleStyle.Render(section.title), section.body)
	}
}

func directionStyle(d models.Direction) lipgloss.Style {
	switch d {
	case models.DirectionLong:
		return longStyle
	case models.DirectionShort:
		return shortStyle
	default:
		return holdStyle
	}
}

func estimateTag(estimated bool) string {
	if !estimated {
		return ""
	}
	return labelStyle.Render("  (estimated)")
}

// Package graph runs the decision pipeline: fan-out analysts, the bounded
// bull/bear debate and its judge, the bounded risk debate and its judge,
// the trader, and signal extraction. Control flow is an explicit state
// machine over AnalysisState.Phase; every loop bound is an integer carried
// in state, never a router decision.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashareq/tradeflow/consts"
	"github.com/ashareq/tradeflow/internal/agents"
	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/dataflows"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/memory"
	"github.com/ashareq/tradeflow/internal/models"
	"github.com/ashareq/tradeflow/internal/processing"
)

// ErrBudgetExceeded is the cause attached to the pipeline deadline. It is
// the only error that aborts a run after it has started.
var ErrBudgetExceeded = errors.New("graph: pipeline budget exceeded")

// Recorder persists a finished run. Persistence is best effort; a recorder
// failure never changes the returned signal.
type Recorder interface {
	RecordRun(state *models.AnalysisState, sig *models.Signal) error
}

// Pipeline owns every collaborator a Propagate call needs. It is built
// once per process and is safe for concurrent Propagate calls; all run
// state lives in the AnalysisState each call owns exclusively.
type Pipeline struct {
	client       llm.Client
	fetcher      dataflows.Fetcher
	memory       *memory.Retriever
	extractor    *processing.Extractor
	recorder     Recorder
	logger       *zap.Logger
	maxToolSteps int
	memoryTopK   int
}

type Option func(*Pipeline)

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func WithMaxToolSteps(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxToolSteps = n
		}
	}
}

func WithMemoryTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.memoryTopK = k
		}
	}
}

func New(client llm.Client, fetcher dataflows.Fetcher, mem *memory.Retriever, extractor *processing.Extractor, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:       client,
		fetcher:      fetcher,
		memory:       mem,
		extractor:    extractor,
		logger:       logger,
		maxToolSteps: 6,
		memoryTopK:   2,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propagate runs the full pipeline for one symbol and date. It never
// returns an error: configuration problems and budget breaches yield the
// best partial state plus an error signal, everything else degrades at the
// stage where it happened.
func (p *Pipeline) Propagate(ctx context.Context, symbol, date string, pcfg config.PipelineConfig) (*models.AnalysisState, *models.Signal) {
	if err := pcfg.Validate(); err != nil {
		state := models.NewAnalysisState(symbol, date, 1, 1)
		state.Phase = models.PhaseFailed
		return state, models.ErrorSignal(symbol, err.Error())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		state := models.NewAnalysisState(symbol, date, 1, 1)
		state.Phase = models.PhaseFailed
		return state, models.ErrorSignal(symbol,
			fmt.Sprintf("%v: trade date %q must be YYYY-MM-DD", config.ErrInvalid, date))
	}

	state := models.NewAnalysisState(symbol, date, pcfg.MaxDebateRounds, pcfg.MaxRiskRounds)
	log := p.logger.With(
		zap.String("run_id", state.RunID),
		zap.String("symbol", symbol),
		zap.String("date", date),
	)

	ctx, cancel := context.WithTimeoutCause(ctx, pcfg.PipelineBudget, ErrBudgetExceeded)
	defer cancel()

	state.Phase = models.PhaseAnalystsRunning
	p.runAnalysts(ctx, state, pcfg, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	if pcfg.UseMemory {
		state.Episodes = p.memory.Lookup(ctx, state.Situation(), p.memoryTopK)
	}

	state.Phase = models.PhaseBullBearDebate
	p.runResearchDebate(ctx, state, pcfg, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	state.Phase = models.PhaseResearchJudged
	covered := p.runJudge(ctx, state, pcfg, agents.NewResearchJudge(p.client), false, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	state.Phase = models.PhaseRiskDebate
	p.runRiskDebate(ctx, state, pcfg, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	state.Phase = models.PhaseRiskJudged
	riskCovered := p.runJudge(ctx, state, pcfg, agents.NewRiskJudge(p.client), true, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	state.Phase = models.PhaseTrader
	p.runTrader(ctx, state, pcfg, log)
	if sig := p.budgetBreach(ctx, state, log); sig != nil {
		return state, sig
	}

	state.Phase = models.PhaseSignalExtracted
	sig := p.extractSignal(ctx, state, pcfg)
	if !covered || !riskCovered {
		sig.Confidence = lowerConfidence(sig.Confidence)
		log.Info("verdict failed the domain presence check, confidence lowered",
			zap.Float64("confidence", sig.Confidence))
	}
	state.FinalSignal = sig
	state.Phase = models.PhaseDone

	if p.recorder != nil {
		if err := p.recorder.RecordRun(state, sig); err != nil {
			log.Warn("run recording failed", zap.Error(err))
		}
	}
	log.Info("pipeline finished",
		zap.String("direction", string(sig.Direction)),
		zap.Float64("confidence", sig.Confidence))
	return state, sig
}

// runAnalysts fans the requested domains out concurrently and joins before
// the debate starts. Reports are collected per goroutine and written back
// after the join, keeping AnalysisState single-writer.
func (p *Pipeline) runAnalysts(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig, log *zap.Logger) {
	reports := make([]string, len(pcfg.Analysts))
	var g errgroup.Group
	for i, domain := range pcfg.Analysts {
		g.Go(func() error {
			stageCtx, cancel := context.WithTimeout(ctx, pcfg.StageTimeout)
			defer cancel()

			analyst := agents.NewAnalyst(domain, p.client, p.fetcher, p.maxToolSteps, log)
			report, err := analyst.Run(stageCtx, state)
			if err != nil {
				log.Warn("analyst degraded", zap.String("domain", domain), zap.Error(err))
				report = degradedPlaceholder(domain, err)
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()
	for i, domain := range pcfg.Analysts {
		state.SetReport(domain, reports[i])
	}
}

// runResearchDebate alternates bull and bear, bull first, until the round
// cap in state.Debate is reached. A failed turn ends the debate early; the
// judge works with whatever transcript exists.
func (p *Pipeline) runResearchDebate(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig, log *zap.Logger) {
	bull, _ := agents.NewResearcher(consts.BullResearcher, p.client)
	bear, _ := agents.NewResearcher(consts.BearResearcher, p.client)

	for !state.Debate.Exhausted() {
		if ctx.Err() != nil {
			return
		}
		speaker := bull
		if len(state.Debate.Turns)%2 == 1 {
			speaker = bear
		}
		turn, err := p.debateTurn(ctx, pcfg, func(stageCtx context.Context) (string, error) {
			return speaker.Argue(stageCtx, state, pcfg.Analysts)
		})
		if err != nil {
			log.Warn("research debate ended early", zap.String("role", speaker.Role()), zap.Error(err))
			return
		}
		state.Debate.Append(speaker.Role(), turn)
	}
}

// runRiskDebate cycles aggressive, conservative, neutral in fixed order
// until the risk round cap is reached.
func (p *Pipeline) runRiskDebate(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig, log *zap.Logger) {
	debaters := make([]*agents.RiskDebater, 0, len(consts.RiskRoles))
	for _, role := range consts.RiskRoles {
		d, _ := agents.NewRiskDebater(role, p.client)
		debaters = append(debaters, d)
	}

	for !state.RiskDebate.Exhausted() {
		if ctx.Err() != nil {
			return
		}
		speaker := debaters[len(state.RiskDebate.Turns)%len(debaters)]
		turn, err := p.debateTurn(ctx, pcfg, func(stageCtx context.Context) (string, error) {
			return speaker.Argue(stageCtx, state, pcfg.Analysts)
		})
		if err != nil {
			log.Warn("risk debate ended early", zap.String("role", speaker.Role()), zap.Error(err))
			return
		}
		state.RiskDebate.Append(speaker.Role(), turn)
	}
}

func (p *Pipeline) debateTurn(ctx context.Context, pcfg config.PipelineConfig, fn func(context.Context) (string, error)) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, pcfg.StageTimeout)
	defer cancel()
	return fn(stageCtx)
}

// runJudge writes the verdict into the matching debate state and reports
// whether it passed the domain presence check.
func (p *Pipeline) runJudge(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig, judge *agents.Judge, risk bool, log *zap.Logger) bool {
	stageCtx, cancel := context.WithTimeout(ctx, pcfg.StageTimeout)
	defer cancel()

	role := consts.ResearchManager
	if risk {
		role = consts.RiskManager
	}
	verdict, err := judge.Decide(stageCtx, state, pcfg.Analysts)
	if err != nil {
		log.Warn("judge degraded", zap.String("role", role), zap.Error(err))
		verdict = fmt.Sprintf("[verdict unavailable: %v]", err)
	}
	if risk {
		state.RiskDebate.JudgeVerdict = verdict
	} else {
		state.Debate.JudgeVerdict = verdict
	}
	log.Info("verdict recorded", zap.String("role", role))
	return err == nil && agents.VerdictCoversDomains(verdict, state, pcfg.Analysts)
}

func (p *Pipeline) runTrader(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig, log *zap.Logger) {
	stageCtx, cancel := context.WithTimeout(ctx, pcfg.StageTimeout)
	defer cancel()

	trader := agents.NewTrader(p.client, p.fetcher, log)
	plan, err := trader.Plan(stageCtx, state, pcfg.Analysts)
	if err != nil {
		log.Warn("trader degraded", zap.String("role", consts.Trader), zap.Error(err))
		plan = fmt.Sprintf("[trader plan unavailable: %v]", err)
	}
	state.TraderPlan = plan
	log.Info("trade plan recorded", zap.String("role", consts.Trader))
}

func (p *Pipeline) extractSignal(ctx context.Context, state *models.AnalysisState, pcfg config.PipelineConfig) *models.Signal {
	var current *models.Price
	if p.fetcher != nil {
		stageCtx, cancel := context.WithTimeout(ctx, pcfg.StageTimeout)
		if q, err := p.fetcher.LastQuote(stageCtx, state.Symbol); err == nil && q != nil {
			current = &models.Price{Amount: q.Last, Currency: q.Currency}
		}
		cancel()
	}
	return p.extractor.Extract(state.Symbol, state.TraderPlan, current)
}

// budgetBreach converts a tripped pipeline deadline into the partial-state
// error result. Returns nil while the budget holds.
func (p *Pipeline) budgetBreach(ctx context.Context, state *models.AnalysisState, log *zap.Logger) *models.Signal {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if !errors.Is(cause, ErrBudgetExceeded) {
		cause = ctx.Err()
	}
	log.Warn("pipeline aborted", zap.String("phase", string(state.Phase)), zap.Error(cause))
	state.Phase = models.PhaseFailed
	return models.ErrorSignal(state.Symbol, cause.Error())
}

func degradedPlaceholder(domain string, err error) string {
	return fmt.Sprintf("[%s analysis unavailable: %v]", domain, err)
}

func lowerConfidence(c float64) float64 {
	c -= 0.1
	if c < 0 {
		return 0
	}
	return c
}

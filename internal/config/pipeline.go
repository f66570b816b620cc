package config

import (
	"fmt"
	"time"

	"github.com/ashareq/tradeflow/consts"
)

// ErrInvalid marks a configuration the pipeline refuses to start with.
// It is the only pre-run fatal error class.
var ErrInvalid = fmt.Errorf("invalid pipeline config")

// PipelineConfig is the per-run contract consumed by Propagate.
type PipelineConfig struct {
	Analysts        []string      `json:"analysts"`
	MaxDebateRounds int           `json:"max_debate_rounds"`
	MaxRiskRounds   int           `json:"max_risk_rounds"`
	UseMemory       bool          `json:"use_memory"`
	StageTimeout    time.Duration `json:"stage_timeout"`
	PipelineBudget  time.Duration `json:"pipeline_budget"`
}

// PipelineDefaults derives a per-run config from the process config.
func (c *Config) PipelineDefaults() PipelineConfig {
	return PipelineConfig{
		Analysts:        append([]string(nil), consts.AllAnalysts...),
		MaxDebateRounds: c.MaxDebateRounds,
		MaxRiskRounds:   c.MaxRiskRounds,
		UseMemory:       c.UseMemory,
		StageTimeout:    c.StageTimeout(),
		PipelineBudget:  c.PipelineBudget(),
	}
}

// Validate rejects configurations that would break the pipeline's bounds.
// All failures wrap ErrInvalid.
func (p PipelineConfig) Validate() error {
	if len(p.Analysts) == 0 {
		return fmt.Errorf("%w: at least one analyst domain required", ErrInvalid)
	}
	known := map[string]bool{}
	for _, d := range consts.AllAnalysts {
		known[d] = true
	}
	for _, d := range p.Analysts {
		if !known[d] {
			return fmt.Errorf("%w: unknown analyst domain %q", ErrInvalid, d)
		}
	}
	if p.MaxDebateRounds < 1 {
		return fmt.Errorf("%w: max_debate_rounds must be >= 1, got %d", ErrInvalid, p.MaxDebateRounds)
	}
	if p.MaxRiskRounds < 1 {
		return fmt.Errorf("%w: max_risk_rounds must be >= 1, got %d", ErrInvalid, p.MaxRiskRounds)
	}
	if p.StageTimeout <= 0 {
		return fmt.Errorf("%w: stage_timeout must be positive", ErrInvalid)
	}
	if p.PipelineBudget <= 0 {
		return fmt.Errorf("%w: pipeline_budget must be positive", ErrInvalid)
	}
	if p.PipelineBudget < p.StageTimeout {
		return fmt.Errorf("%w: pipeline_budget %s shorter than stage_timeout %s", ErrInvalid, p.PipelineBudget, p.StageTimeout)
	}
	return nil
}

package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashareq/tradeflow/consts"
)

func TestPipelineConfigValidate(t *testing.T) {
	base := PipelineConfig{
		Analysts:        []string{consts.MarketAnalyst, consts.NewsAnalyst},
		MaxDebateRounds: 2,
		MaxRiskRounds:   1,
		StageTimeout:    30 * time.Second,
		PipelineBudget:  5 * time.Minute,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"no analysts", func(p *PipelineConfig) { p.Analysts = nil }},
		{"unknown domain", func(p *PipelineConfig) { p.Analysts = []string{"astrology"} }},
		{"zero debate rounds", func(p *PipelineConfig) { p.MaxDebateRounds = 0 }},
		{"zero risk rounds", func(p *PipelineConfig) { p.MaxRiskRounds = 0 }},
		{"no stage timeout", func(p *PipelineConfig) { p.StageTimeout = 0 }},
		{"budget under timeout", func(p *PipelineConfig) { p.PipelineBudget = p.StageTimeout / 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.Analysts = append([]string(nil), base.Analysts...)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	mgr, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxDebateRounds = 5
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := mgr.Get().MaxDebateRounds; got != 5 {
		t.Fatalf("expected 5 debate rounds after update, got %d", got)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	mgr, err := NewManager(WithConfigPath(path), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		reloaded <- cfg
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxRiskRounds = 4
	if err := writeConfigFile(path, cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.MaxRiskRounds != 4 {
			t.Fatalf("expected reloaded max_risk_rounds 4, got %d", got.MaxRiskRounds)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

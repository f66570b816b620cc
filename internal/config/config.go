package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration. It is loaded once at startup
// from defaults, the JSON config file, and environment overrides, and passed
// explicitly into the pipeline; nothing reads it through package globals.
type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	LLMProvider    string `json:"llm_provider"`
	LLMModel       string `json:"llm_model"`
	BackendURL     string `json:"backend_url"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	MaxDebateRounds int `json:"max_debate_rounds"`
	MaxRiskRounds   int `json:"max_risk_rounds"`

	StageTimeoutSec   int `json:"stage_timeout_sec"`
	PipelineBudgetSec int `json:"pipeline_budget_sec"`
	MaxToolSteps      int `json:"max_tool_steps"`
	LLMRatePerSec     int `json:"llm_rate_per_sec"`

	UseMemory       bool    `json:"use_memory"`
	MemoryDSN       string  `json:"memory_dsn"`
	SimilarityFloor float64 `json:"similarity_floor"`
	MemoryTopK      int     `json:"memory_top_k"`

	FallbackEstimatePct float64 `json:"fallback_estimate_pct"`
	NeutralConfidence   float64 `json:"neutral_confidence"`

	FinnhubAPIKey       string `json:"finnhub_api_key"`
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	OnlineTools  bool `json:"online_tools"`
	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		LLMProvider: "deepseek",
		LLMModel:    "deepseek-chat",
		BackendURL:  "",

		MaxDebateRounds: 2,
		MaxRiskRounds:   1,

		StageTimeoutSec:   120,
		PipelineBudgetSec: 900,
		MaxToolSteps:      6,
		LLMRatePerSec:     2,

		UseMemory:       false,
		SimilarityFloor: 0.1,
		MemoryTopK:      2,

		FallbackEstimatePct: 0.10,
		NeutralConfidence:   0.5,

		OnlineTools:  true,
		CacheEnabled: true,
		Debug:        false,
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	setStr := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.Atoi(val); err == nil {
				*dst = v
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseBool(val); err == nil {
				*dst = v
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				*dst = v
			}
		}
	}

	setStr("PROJECT_DIR", &c.ProjectDir)
	setStr("RESULTS_DIR", &c.ResultsDir)
	setStr("DATA_DIR", &c.DataDir)
	setStr("DATA_CACHE_DIR", &c.DataCacheDir)

	setStr("LLM_PROVIDER", &c.LLMProvider)
	setStr("LLM_MODEL", &c.LLMModel)
	setStr("BACKEND_URL", &c.BackendURL)
	setStr("OPENAI_API_KEY", &c.OpenAIAPIKey)
	setStr("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)

	setInt("MAX_DEBATE_ROUNDS", &c.MaxDebateRounds)
	setInt("MAX_RISK_ROUNDS", &c.MaxRiskRounds)
	setInt("STAGE_TIMEOUT_SEC", &c.StageTimeoutSec)
	setInt("PIPELINE_BUDGET_SEC", &c.PipelineBudgetSec)
	setInt("MAX_TOOL_STEPS", &c.MaxToolSteps)
	setInt("LLM_RATE_PER_SEC", &c.LLMRatePerSec)

	setBool("USE_MEMORY", &c.UseMemory)
	setStr("MEMORY_DSN", &c.MemoryDSN)
	setFloat("SIMILARITY_FLOOR", &c.SimilarityFloor)
	setInt("MEMORY_TOP_K", &c.MemoryTopK)

	setFloat("FALLBACK_ESTIMATE_PCT", &c.FallbackEstimatePct)
	setFloat("NEUTRAL_CONFIDENCE", &c.NeutralConfidence)

	setStr("FINNHUB_API_KEY", &c.FinnhubAPIKey)
	setStr("LONGPORT_APP_KEY", &c.LongportAppKey)
	setStr("LONGPORT_APP_SECRET", &c.LongportAppSecret)
	setStr("LONGPORT_ACCESS_TOKEN", &c.LongportAccessToken)

	setBool("ONLINE_TOOLS", &c.OnlineTools)
	setBool("CACHE_ENABLED", &c.CacheEnabled)
	setBool("TRADEFLOW_DEBUG", &c.Debug)
}

// StageTimeout returns the per-stage deadline carried by every external call.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSec) * time.Second
}

// PipelineBudget returns the wall-clock budget for a whole Propagate call.
func (c *Config) PipelineBudget() time.Duration {
	return time.Duration(c.PipelineBudgetSec) * time.Second
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.ResultsDir, c.DataDir, c.DataCacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

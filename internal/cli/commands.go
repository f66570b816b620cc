package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashareq/tradeflow/internal/config"
	"github.com/ashareq/tradeflow/internal/dataflows"
	"github.com/ashareq/tradeflow/internal/display"
	"github.com/ashareq/tradeflow/internal/graph"
	"github.com/ashareq/tradeflow/internal/llm"
	"github.com/ashareq/tradeflow/internal/memory"
	"github.com/ashareq/tradeflow/internal/models"
	"github.com/ashareq/tradeflow/internal/processing"
	"github.com/ashareq/tradeflow/internal/storage"
)

const version = "0.3.0"

// NewRootCmd wires the whole application: config, logger, data sources,
// memory, pipeline, output.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:           "tradeflow",
		Short:         "Multi-agent trading decision pipeline",
		Long:          "tradeflow runs a debate-driven multi-agent analysis for a ticker and emits a bounded trade signal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			return cfg.EnsureDirectories()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newMemoryCmd(cfg))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	var path string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the on-disk configuration file",
	}
	configCmd.PersistentFlags().StringVar(&path, "file", "", "config file path (default ~/.tradeflow/config.json)")

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager(config.WithConfigPath(path))
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(mgr.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s\n", mgr.Path(), raw)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the config file with defaults if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager(config.WithConfigPath(path))
			if err != nil {
				return err
			}
			fmt.Printf("config ready at %s\n", mgr.Path())
			return nil
		},
	})

	return configCmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	var (
		date     string
		analysts []string
		rounds   int
	)

	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run the pipeline for one symbol",
		Long:  "Run the full analyst/debate/risk/trader pipeline. Without a symbol argument an interactive prompt is started.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := ""
			if len(args) == 1 {
				symbol = strings.ToUpper(strings.TrimSpace(args[0]))
			}

			var err error
			if symbol == "" {
				if symbol, err = PromptForSymbol(); err != nil {
					return err
				}
				if date == "" {
					if date, err = PromptForDate(); err != nil {
						return err
					}
				}
				if analysts == nil {
					if analysts, err = PromptForAnalysts(); err != nil {
						return err
					}
				}
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
			}

			return runAnalyze(cmd.Context(), cfg, symbol, date, analysts, rounds)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "trade date, YYYY-MM-DD (default today)")
	cmd.Flags().StringSliceVar(&analysts, "analysts", nil, "analyst domains to run (default all)")
	cmd.Flags().IntVar(&rounds, "debate-rounds", 0, "override max debate rounds")
	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, symbol, date string, analysts []string, rounds int) error {
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	retrying := llm.NewRetrying(client, logger, llm.WithRateLimit(cfg.LLMRatePerSec))
	fetcher := dataflows.New(cfg, logger)

	retriever, closeMem, err := buildRetriever(ctx, cfg, logger)
	if err != nil {
		logger.Warn("memory disabled", zap.Error(err))
	}
	if closeMem != nil {
		defer closeMem()
	}

	pipeline := graph.New(
		retrying,
		fetcher,
		retriever,
		processing.NewExtractor(cfg, logger),
		logger,
		graph.WithRecorder(storage.NewRunRecorder(cfg.ResultsDir, logger)),
		graph.WithMaxToolSteps(cfg.MaxToolSteps),
		graph.WithMemoryTopK(cfg.MemoryTopK),
	)

	pcfg := cfg.PipelineDefaults()
	if len(analysts) > 0 {
		pcfg.Analysts = analysts
	}
	if rounds > 0 {
		pcfg.MaxDebateRounds = rounds
	}

	state, sig := pipeline.Propagate(ctx, symbol, date, pcfg)

	renderer := display.NewRenderer(os.Stdout)
	renderer.RenderState(state)
	renderer.RenderSignal(sig)

	if sig.IsError {
		return fmt.Errorf("analysis failed: %s", sig.ErrorMessage)
	}
	return nil
}

// buildRetriever picks the episode store: pgvector when a DSN is set, an
// in-process store otherwise. The second return closes the pool.
func buildRetriever(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*memory.Retriever, func(), error) {
	if !cfg.UseMemory {
		return nil, nil, nil
	}

	embedder := pickEmbedder(cfg)
	if cfg.MemoryDSN != "" {
		store, err := memory.NewPgStore(ctx, cfg.MemoryDSN, cfg.SimilarityFloor)
		if err != nil {
			return nil, nil, err
		}
		return memory.NewRetriever(store, embedder, logger), store.Close, nil
	}
	return memory.NewRetriever(memory.NewInMemStore(cfg.SimilarityFloor), embedder, logger), nil, nil
}

// pickEmbedder matches the pgvector column width of 1536 dimensions for
// both the hosted and the offline embedder.
func pickEmbedder(cfg *config.Config) memory.Embedder {
	if cfg.OpenAIAPIKey != "" {
		return memory.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.BackendURL)
	}
	return memory.NewHashingEmbedder(1536)
}

// seedEpisode is one line of the JSONL file consumed by memory seed.
type seedEpisode struct {
	Symbol    string  `json:"symbol"`
	Situation string  `json:"situation"`
	Return    float64 `json:"return"`
	Success   bool    `json:"success"`
	Lesson    string  `json:"lesson"`
}

func newMemoryCmd(cfg *config.Config) *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Episodic memory maintenance",
	}

	seedCmd := &cobra.Command{
		Use:   "seed [FILE]",
		Short: "Load labeled episodes from a JSONL file",
		Long:  "Each line holds {symbol, situation, return, success, lesson}; the situation text is embedded and stored for retrieval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return seedMemory(cmd.Context(), cfg, logger, args[0])
		},
	}
	memoryCmd.AddCommand(seedCmd)
	return memoryCmd
}

func seedMemory(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) error {
	if cfg.MemoryDSN == "" {
		return fmt.Errorf("MEMORY_DSN must be set to seed the episode store")
	}
	store, err := memory.NewPgStore(ctx, cfg.MemoryDSN, cfg.SimilarityFloor)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := pickEmbedder(cfg)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row seedEpisode
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return fmt.Errorf("line %d: %w", count+1, err)
		}
		vec, err := embedder.Embed(ctx, row.Situation)
		if err != nil {
			return fmt.Errorf("embed line %d: %w", count+1, err)
		}
		ep := models.Episode{
			ID:              uuid.NewString(),
			Symbol:          row.Symbol,
			ContextFeatures: vec,
			Outcome:         models.Outcome{Return: row.Return, Success: row.Success},
			Lesson:          row.Lesson,
			CreatedAt:       time.Now().UTC(),
		}
		if err := store.Record(ctx, ep); err != nil {
			return fmt.Errorf("record line %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	logger.Info("episodes seeded", zap.Int("count", count), zap.String("file", path))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tradeflow %s\n", version)
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

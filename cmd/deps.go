package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/qcbank/internal/analyzer"
	"github.com/abhisek/qcbank/internal/config"
	"github.com/abhisek/qcbank/internal/llm"
	"github.com/abhisek/qcbank/internal/logging"
	"github.com/abhisek/qcbank/internal/metrics"
	"github.com/abhisek/qcbank/internal/question"
	"github.com/abhisek/qcbank/internal/store"
)

// deps holds everything a command needs to run the pipeline.
type deps struct {
	cfg      config.Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	store    *store.Store
	svc      *question.Service
	analyzer string
}

func (d *deps) Close() error {
	return d.store.Close()
}

// buildDeps loads config, opens the store and wires the review pipeline.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.InitGlobal(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	m := metrics.New()

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath,
		store.WithMetrics(m),
		store.WithLogger(logging.Component(log, "store")))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	set, kind := analyzerSet(cmd.Context(), cfg, st, log)
	asm, err := question.NewAssembler(set, question.AssemblerConfig{
		Timeout:  cfg.Analyzer.Timeout,
		Timeouts: cfg.Analyzer.AnalyzerTimeouts(),
	}, log, m)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build assembler: %w", err)
	}

	log.Debug().Str("db", dbPath).Str("analyzers", kind).Msg("pipeline ready")
	return &deps{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		store:    st,
		svc:      question.NewService(st, asm, log, m),
		analyzer: kind,
	}, nil
}

// openStore opens the database without building the pipeline.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// analyzerSet builds LLM-backed analyzers when a provider is configured
// or discoverable, and rule-based ones otherwise. It returns the set and
// a label naming what backs it.
func analyzerSet(ctx context.Context, cfg config.Config, events llm.EventRecorder, log zerolog.Logger) (analyzer.Set, string) {
	llmCfg := cfg.LLM
	if llmCfg.Provider == llm.ProviderNone {
		return analyzer.NewStaticSet(), "static"
	}
	if err := llmCfg.Validate(); err != nil {
		if !llm.DiscoverConfig(&llmCfg) {
			log.Warn().Err(err).Msg("LLM provider not configured, using rule-based analyzers")
			return analyzer.NewStaticSet(), "static"
		}
	}

	p, err := llm.NewProvider(ctx, llmCfg, events, logging.Component(log, "llm"))
	if err != nil {
		log.Warn().Err(err).Str("provider", llmCfg.Provider).Msg("LLM provider unavailable, using rule-based analyzers")
		return analyzer.NewStaticSet(), "static"
	}

	cfgs := analyzer.DefaultLLMConfigs()
	for name, c := range cfgs {
		if cfg.Analyzer.MaxInputChars > 0 {
			c.MaxInputChars = cfg.Analyzer.MaxInputChars
		}
		cfgs[name] = c
	}
	return analyzer.NewLLMSet(p, cfgs), llmCfg.Provider
}

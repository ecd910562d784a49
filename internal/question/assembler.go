package question

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/qcbank/internal/analyzer"
)

// DefaultAnalyzerTimeout bounds each analyzer call.
const DefaultAnalyzerTimeout = 30 * time.Second

// Metrics receives pipeline measurements.
type Metrics interface {
	ObserveAnalyzer(analyzer, outcome string, d time.Duration)
	AnalyzerFailed(analyzer, kind string)
	SubmissionFinished(status string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAnalyzer(string, string, time.Duration) {}
func (nopMetrics) AnalyzerFailed(string, string)                 {}
func (nopMetrics) SubmissionFinished(string)                     {}

// AssemblerConfig holds analyzer timeouts.
type AssemblerConfig struct {
	// Timeout applies to every analyzer without an override.
	Timeout time.Duration
	// Timeouts overrides Timeout per analyzer.
	Timeouts map[analyzer.Name]time.Duration
}

// Facets is the merged output of one analysis run. Failed analyzers leave
// their facet nil and are listed in Failures.
type Facets struct {
	Correctness *analyzer.Correctness
	Language    *analyzer.Language
	Improvement *analyzer.Improvement
	Metadata    *analyzer.Metadata
	Failures    []*analyzer.Error
}

// Assembler runs the analyzers concurrently and merges their facets into
// a Version.
type Assembler struct {
	set     analyzer.Set
	cfg     AssemblerConfig
	log     zerolog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewAssembler creates an Assembler. m may be nil.
func NewAssembler(set analyzer.Set, cfg AssemblerConfig, log zerolog.Logger, m Metrics) (*Assembler, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAnalyzerTimeout
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &Assembler{
		set:     set,
		cfg:     cfg,
		log:     log.With().Str("component", "assembler").Logger(),
		metrics: m,
		now:     time.Now,
	}, nil
}

func (a *Assembler) timeout(name analyzer.Name) time.Duration {
	if d, ok := a.cfg.Timeouts[name]; ok && d > 0 {
		return d
	}
	return a.cfg.Timeout
}

// Analyze runs all four analyzers against text and waits for every one of
// them. A failing analyzer never stops the others; its facet is left nil
// and listed in Failures. Cancelling ctx cancels the analyzers still in
// flight, and Analyze then returns ctx's error alongside whatever facets
// completed.
func (a *Assembler) Analyze(ctx context.Context, text string) (Facets, error) {
	var (
		f        Facets
		failures [4]*analyzer.Error
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f.Correctness, failures[0] = runAnalyzer(gctx, a, analyzer.NameCorrectness, a.set.Correctness, text)
		return ctx.Err()
	})
	g.Go(func() error {
		f.Language, failures[1] = runAnalyzer(gctx, a, analyzer.NameLanguage, a.set.Language, text)
		return ctx.Err()
	})
	g.Go(func() error {
		f.Improvement, failures[2] = runAnalyzer(gctx, a, analyzer.NameImprovement, a.set.Improvement, text)
		return ctx.Err()
	})
	g.Go(func() error {
		f.Metadata, failures[3] = runAnalyzer(gctx, a, analyzer.NameMetadata, a.set.Metadata, text)
		return ctx.Err()
	})
	err := g.Wait()

	for _, e := range failures {
		if e != nil {
			f.Failures = append(f.Failures, e)
		}
	}
	return f, err
}

func runAnalyzer[F analyzer.Facet](ctx context.Context, a *Assembler, name analyzer.Name, an analyzer.Analyzer[F], text string) (facet F, aerr *analyzer.Error) {
	var zero F
	ctx, cancel := context.WithTimeout(ctx, a.timeout(name))
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			facet, aerr = zero, &analyzer.Error{Analyzer: name, Kind: analyzer.KindUpstreamFailure, Err: fmt.Errorf("panic: %v", r)}
		}
		outcome := "ok"
		if aerr != nil {
			outcome = string(aerr.Kind)
			a.metrics.AnalyzerFailed(string(name), string(aerr.Kind))
			a.log.Warn().Err(aerr.Err).
				Str("analyzer", string(name)).
				Str("kind", string(aerr.Kind)).
				Msg("analyzer failed, facet omitted")
		}
		a.metrics.ObserveAnalyzer(string(name), outcome, time.Since(start))
	}()

	out, err := an.Analyze(ctx, text)
	if err != nil {
		return zero, analyzer.Classify(name, err)
	}
	if !out.Complete() {
		return zero, analyzer.Classify(name, analyzer.ErrIncomplete)
	}
	return out, nil
}

// Build assembles the Version that follows prior. It does no I/O.
func (a *Assembler) Build(f Facets, text, createdBy string, prior int, now time.Time) Version {
	v := Version{
		VersionNumber: prior + 1,
		Timestamp:     now.UTC(),
		CreatedBy:     createdBy,
		Correctness:   f.Correctness,
		Language:      f.Language,
		Improvement:   f.Improvement,
		Metadata:      f.Metadata,
	}
	if IsPipelineActor(createdBy) {
		v.ImprovedText = text
	} else {
		v.OriginalText = text
	}
	return v
}

// Assemble analyzes text and builds the Version that follows prior. It
// fails only when ctx ends before the analyzers finish.
func (a *Assembler) Assemble(ctx context.Context, text, createdBy string, prior int) (Version, error) {
	f, err := a.Analyze(ctx, text)
	if err != nil {
		return Version{}, err
	}
	return a.Build(f, text, createdBy, prior, a.now()), nil
}

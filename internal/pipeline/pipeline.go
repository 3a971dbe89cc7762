// Package pipeline orchestrates one extraction run: load each state's rules,
// fetch its tax pages, ask the model, parse the answer, and record the
// outcome. A state failing at any stage never stops its siblings.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/taxautomation/taxbot/internal/cost"
	"github.com/taxautomation/taxbot/internal/extract"
	"github.com/taxautomation/taxbot/internal/fetch"
	"github.com/taxautomation/taxbot/internal/llm"
	"github.com/taxautomation/taxbot/internal/model"
	"github.com/taxautomation/taxbot/internal/registry"
	"github.com/taxautomation/taxbot/internal/store"
)

// defaultLLMTimeout bounds a single generation call.
const defaultLLMTimeout = 120 * time.Second

// PageFetcher retrieves the best available tax page for a state, walking
// its candidate URLs. *fetch.Chain is the production implementation.
type PageFetcher interface {
	FetchState(ctx context.Context, cfg *model.StateConfig) (*fetch.Page, error)
}

// Options configures a Pipeline.
type Options struct {
	StatesDir   string
	EntityType  string  // overrides every state's entity_type when set
	Industry    string  // overrides every state's industry when set
	Concurrency int     // states in flight at once; <=1 means sequential
	LLMRate     float64 // generation calls per second; <=0 disables pacing
	Thresholds  extract.Thresholds
	Prompt      *extract.PromptBuilder
}

// Pipeline runs the extraction stages over a batch of states.
type Pipeline struct {
	fetcher  PageFetcher
	client   llm.Client
	store    store.Store
	costCalc *cost.Calculator
	limiter  *rate.Limiter
	opts     Options
}

// New creates a Pipeline. store may be nil when auditing is disabled.
func New(fetcher PageFetcher, client llm.Client, st store.Store, calc *cost.Calculator, opts Options) *Pipeline {
	if opts.Prompt == nil {
		opts.Prompt = &extract.PromptBuilder{}
	}
	if opts.Thresholds == (extract.Thresholds{}) {
		opts.Thresholds = extract.DefaultThresholds()
	}
	if calc == nil {
		calc = cost.NewCalculator(cost.DefaultRates())
	}

	var limiter *rate.Limiter
	if opts.LLMRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.LLMRate), 1)
	}

	return &Pipeline{
		fetcher:  fetcher,
		client:   client,
		store:    st,
		costCalc: calc,
		limiter:  limiter,
		opts:     opts,
	}
}

// Run processes the given state codes and returns one outcome per code, in
// input order. The returned run carries the batch accounting; the error is
// reserved for faults outside state processing, like the audit store.
func (p *Pipeline) Run(ctx context.Context, codes []string) (*model.Run, []model.StateOutcome, error) {
	run := &model.Run{
		ID:              uuid.New().String(),
		Status:          model.RunStatusRunning,
		EntityType:      p.opts.EntityType,
		Industry:        p.opts.Industry,
		StatesRequested: len(codes),
		StartedAt:       time.Now().UTC(),
	}
	if p.store != nil {
		if err := p.store.CreateRun(ctx, run); err != nil {
			return nil, nil, eris.Wrap(err, "pipeline: create run")
		}
	}

	outcomes := make([]model.StateOutcome, len(codes))
	costs := make([]float64, len(codes))

	if p.opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Concurrency)
		for i, code := range codes {
			g.Go(func() error {
				outcomes[i], costs[i] = p.processState(gctx, run, i, code)
				return nil
			})
		}
		_ = g.Wait() // workers report failure through their outcome slot
	} else {
		for i, code := range codes {
			outcomes[i], costs[i] = p.processState(ctx, run, i, code)
		}
	}

	for i := range outcomes {
		if outcomes[i].Succeeded() {
			run.StatesSucceeded++
		} else {
			run.StatesFailed++
		}
		run.EstimatedCost += costs[i]
	}

	run.Status = model.RunStatusComplete
	if run.StatesSucceeded == 0 && run.StatesRequested > 0 {
		run.Status = model.RunStatusFailed
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	zap.L().Info("pipeline: run finished",
		zap.String("run_id", run.ID),
		zap.Int("requested", run.StatesRequested),
		zap.Int("succeeded", run.StatesSucceeded),
		zap.Int("failed", run.StatesFailed),
		zap.Float64("estimated_cost", run.EstimatedCost),
	)
	return run, outcomes, nil
}

// Finish persists the final run accounting. Call after report paths and any
// late fields are set on the run.
func (p *Pipeline) Finish(ctx context.Context, run *model.Run) error {
	if p.store == nil {
		return nil
	}
	return eris.Wrap(p.store.FinishRun(ctx, run), "pipeline: finish run")
}

func (p *Pipeline) processState(ctx context.Context, run *model.Run, position int, code string) (model.StateOutcome, float64) {
	start := time.Now()
	log := zap.L().With(zap.String("state", code), zap.String("run_id", run.ID))

	outcome, callCost := p.extractState(ctx, log, code)
	outcome.Duration = time.Since(start)

	if outcome.Succeeded() {
		log.Info("pipeline: state extracted",
			zap.String("source_url", outcome.Record.SourceURL),
			zap.Float64("confidence", outcome.Record.ConfidenceScore),
			zap.Duration("duration", outcome.Duration),
		)
	} else {
		log.Warn("pipeline: state failed",
			zap.String("stage", string(outcome.Stage)),
			zap.String("reason", outcome.Reason),
			zap.Duration("duration", outcome.Duration),
		)
	}

	p.recordStateResult(ctx, run, position, &outcome)
	return outcome, callCost
}

// extractState walks the stages for one state, returning the outcome and
// the cost of any model call made. Each stage's failure tags the outcome so
// the reasoning log can say where processing stopped.
func (p *Pipeline) extractState(ctx context.Context, log *zap.Logger, code string) (model.StateOutcome, float64) {
	outcome := model.StateOutcome{StateCode: code}

	cfg, err := registry.Load(p.opts.StatesDir, code)
	if err != nil {
		outcome.Stage = model.StageConfig
		outcome.Reason = err.Error()
		return outcome, 0
	}
	outcome.StateName = cfg.StateName

	if p.opts.EntityType != "" {
		cfg.EntityType = p.opts.EntityType
	}
	if p.opts.Industry != "" {
		cfg.Industry = p.opts.Industry
	}

	page, err := p.fetcher.FetchState(ctx, cfg)
	if err != nil {
		outcome.Stage = model.StageFetch
		outcome.Reason = err.Error()
		return outcome, 0
	}
	log.Debug("pipeline: page fetched",
		zap.String("url", page.URL),
		zap.Int("content_chars", len(page.Content)),
	)

	resp, err := p.generate(ctx, cfg, page.Content)
	if err != nil {
		outcome.Stage = model.StageLLM
		outcome.Reason = err.Error()
		return outcome, 0
	}
	callCost := p.costCalc.LLM(p.client.Provider(), resp.Model, resp.InputTokens, resp.OutputTokens)

	parsed, err := extract.Parse(resp.Text, cfg)
	if err != nil {
		outcome.Stage = model.StageParse
		outcome.Reason = err.Error()
		return outcome, callCost
	}

	outcome.Record = &model.ExtractionRecord{
		StateName:          cfg.StateName,
		StateCode:          cfg.StateCode,
		EntityType:         cfg.EntityType,
		Industry:           cfg.Industry,
		NexusStandard:      cfg.NexusStandard,
		NexusEffectiveDate: cfg.NexusEffectiveDate,
		Fields:             parsed.Fields,
		ShippingRule:       parsed.ShippingRule,
		SourceSections:     parsed.SourceSections,
		Reasoning:          parsed.Reasoning,
		ConfidenceScore:    parsed.Confidence,
		Confidence:         p.opts.Thresholds.Classify(parsed.Confidence),
		SourceURL:          page.URL,
		SalesFactorMethod:  cfg.SalesFactorMethod,
		SalesFactorDate:    cfg.SalesFactorDate,
	}
	return outcome, callCost
}

// generate paces and bounds the single model call for a state.
func (p *Pipeline) generate(ctx context.Context, cfg *model.StateConfig, content string) (*llm.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "pipeline: llm rate wait")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultLLMTimeout)
	defer cancel()

	prompt := p.opts.Prompt.Build(cfg, content)
	return p.client.Generate(callCtx, prompt)
}

func (p *Pipeline) recordStateResult(ctx context.Context, run *model.Run, position int, o *model.StateOutcome) {
	if p.store == nil {
		return
	}

	result := &model.StateResult{
		ID:         uuid.New().String(),
		RunID:      run.ID,
		Position:   position,
		StateCode:  o.StateCode,
		StateName:  o.StateName,
		Status:     model.StateStatusFailed,
		Stage:      o.Stage,
		Reason:     o.Reason,
		DurationMS: o.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if o.Succeeded() {
		rec := o.Record
		result.Status = model.StateStatusSuccess
		result.Stage = ""
		result.SourceURL = rec.SourceURL
		result.ConfidenceScore = rec.ConfidenceScore
		result.Confidence = rec.Confidence
		result.Reasoning = rec.Reasoning
		result.Fields = make(map[string]string, len(rec.Fields))
		for f, v := range rec.Fields {
			result.Fields[string(f)] = v
		}
	}

	if err := p.store.AddStateResult(ctx, result); err != nil {
		zap.L().Warn("pipeline: failed to record state result",
			zap.String("state", o.StateCode),
			zap.Error(err),
		)
	}
}

// Package pipeline wires the stages together: design -> run -> score ->
// analyze -> validate. Each stage reads its input JSONL, writes its output
// JSONL, and can be invoked independently; re-processing is idempotent
// keyed by each record's logical key.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/biaslens/internal/analyze"
	"github.com/ppiankov/biaslens/internal/cache"
	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/design"
	"github.com/ppiankov/biaslens/internal/llm"
	"github.com/ppiankov/biaslens/internal/model"
	"github.com/ppiankov/biaslens/internal/runner"
	"github.com/ppiankov/biaslens/internal/score"
	"github.com/ppiankov/biaslens/internal/store"
	"github.com/ppiankov/biaslens/internal/validate"
)

// Stage output file names under the configured output directory.
const (
	InstancesFile = "instances.jsonl"
	ResponsesFile = "responses.jsonl"
	SignalsFile   = "signals.jsonl"
	FindingsFile  = "findings.jsonl"
	VerdictsFile  = "verdicts.jsonl"
)

// Pipeline holds the shared inputs every stage needs.
type Pipeline struct {
	cfg   *model.Config
	cat   *catalog.Catalog
	gt    *catalog.Store
	log   *zap.Logger
	prov  llm.Provider // lazily created, only the run stage needs it
}

// New loads and validates the catalog and ground-truth inputs. Both are
// read once and treated as read-only; a bad input aborts here, before any
// model I/O.
func New(cfg *model.Config, catalogPath, groundTruthPath string, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cat, err := catalog.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}
	gt, err := catalog.LoadStore(groundTruthPath)
	if err != nil {
		return nil, err
	}

	return &Pipeline{cfg: cfg, cat: cat, gt: gt, log: log}, nil
}

func (p *Pipeline) path(name string) string {
	return filepath.Join(p.cfg.Output.Dir, name)
}

// Design expands the catalog x entities into the full instance set and
// writes instances.jsonl.
func (p *Pipeline) Design() (int, error) {
	instances, err := design.New(p.cat, p.gt).Instances()
	if err != nil {
		return 0, err
	}
	if err := store.WriteAll(p.path(InstancesFile), instances); err != nil {
		return 0, err
	}
	p.log.Info("designed instances",
		zap.Int("count", len(instances)),
		zap.String("catalog_version", p.cat.Version))
	return len(instances), nil
}

// Run executes pending instances against the configured provider and
// appends response records. With skipExisting, instances already captured
// successfully are not re-executed, so a re-run adds no duplicates.
func (p *Pipeline) Run(ctx context.Context, skipExisting bool) (runner.Summary, error) {
	instances, err := store.ReadAll[model.PromptInstance](p.path(InstancesFile))
	if err != nil {
		return runner.Summary{}, fmt.Errorf("load instances: %w", err)
	}

	existingRecs, err := store.ReadAllIfExists[model.ResponseRecord](p.path(ResponsesFile))
	if err != nil {
		return runner.Summary{}, fmt.Errorf("load existing responses: %w", err)
	}
	existing := store.Latest(existingRecs)

	if p.prov == nil {
		p.prov, err = llm.NewProvider(p.cfg.LLM)
		if err != nil {
			return runner.Summary{}, err
		}
	}

	var respCache cache.Cache
	if p.cfg.Cache.Enabled {
		respCache = cache.NewLayered(p.cfg.Cache.Dir, p.cfg.Cache.TTL)
	}

	r := runner.New(p.prov, p.cfg, respCache, p.log)
	records, summary := r.Run(ctx, instances, existing, skipExisting)

	if err := store.Append(p.path(ResponsesFile), records...); err != nil {
		return summary, fmt.Errorf("append responses: %w", err)
	}

	p.log.Info("run complete",
		zap.Int("total", summary.Total),
		zap.Int("captured", summary.Captured),
		zap.Int("retried", summary.Retried),
		zap.Int("cached", summary.Cached),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// SetProvider overrides the provider (used by tests and embedding callers).
func (p *Pipeline) SetProvider(prov llm.Provider) { p.prov = prov }

// Score derives one signal vector per successfully captured response.
// Scoring is pure, so responses are scored in parallel.
func (p *Pipeline) Score(ctx context.Context) (int, error) {
	recs, err := store.ReadAll[model.ResponseRecord](p.path(ResponsesFile))
	if err != nil {
		return 0, fmt.Errorf("load responses: %w", err)
	}

	var captured []model.ResponseRecord
	for _, rec := range store.Latest(recs) {
		if rec.Succeeded() {
			captured = append(captured, rec)
		}
	}
	// Deterministic output order regardless of map iteration.
	sortRecords(captured)

	scorer := score.NewScorer(p.gt, p.log)
	signals := make([]model.SignalVector, len(captured))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency.Workers)
	for i, rec := range captured {
		i, rec := i, rec
		g.Go(func() error {
			signals[i] = scorer.Score(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := store.WriteAll(p.path(SignalsFile), signals); err != nil {
		return 0, err
	}
	p.log.Info("scored responses", zap.Int("count", len(signals)))
	return len(signals), nil
}

// Analyze computes findings from the signal file.
func (p *Pipeline) Analyze() (int, error) {
	signals, err := store.ReadAll[model.SignalVector](p.path(SignalsFile))
	if err != nil {
		return 0, fmt.Errorf("load signals: %w", err)
	}

	findings := analyze.New(p.cfg.Analysis, p.cat).Analyze(signals)
	if err := store.WriteAll(p.path(FindingsFile), findings); err != nil {
		return 0, err
	}
	p.log.Info("analysis complete", zap.Int("findings", len(findings)))
	return len(findings), nil
}

// Validate checks extracted claims against ground truth and writes
// verdicts.jsonl. Returns the per-condition inconsistency rates.
func (p *Pipeline) Validate() (map[string]validate.ConditionRate, error) {
	signals, err := store.ReadAll[model.SignalVector](p.path(SignalsFile))
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	verdicts := validate.New(p.gt, p.cfg.Tolerance).Validate(signals)
	if err := store.WriteAll(p.path(VerdictsFile), verdicts); err != nil {
		return nil, err
	}

	rates := validate.InconsistencyRates(verdicts)
	p.log.Info("validation complete",
		zap.Int("verdicts", len(verdicts)),
		zap.Int("conditions", len(rates)))
	return rates, nil
}

// RunAll executes every stage in order.
func (p *Pipeline) RunAll(ctx context.Context, skipExisting bool) error {
	if _, err := p.Design(); err != nil {
		return fmt.Errorf("design: %w", err)
	}
	if _, err := p.Run(ctx, skipExisting); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if _, err := p.Score(ctx); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	if _, err := p.Analyze(); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if _, err := p.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

func sortRecords(recs []model.ResponseRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].InstanceID < recs[j].InstanceID })
}

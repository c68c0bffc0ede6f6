// Package runner executes prompt instances against a model adapter with
// bounded concurrency, per-model rate limiting, retry with exponential
// backoff, and skip-existing idempotency. It is the only component that
// performs blocking I/O; a single instance's failure never aborts the batch.
package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/biaslens/internal/cache"
	"github.com/ppiankov/biaslens/internal/llm"
	"github.com/ppiankov/biaslens/internal/model"
)

// Summary reports batch-level outcomes so partial runs stay analyzable.
type Summary struct {
	Total    int `json:"total"`
	Skipped  int `json:"skipped"` // already captured, skip-existing policy
	Captured int `json:"captured"`
	Retried  int `json:"retried"` // captured after at least one retry
	Cached   int `json:"cached"`
	Failed   int `json:"failed"`
}

// Runner drives the execution stage.
type Runner struct {
	provider    llm.Provider
	cfg         *model.Config
	limiter     *Limiter
	cache       cache.Cache
	log         *zap.Logger
	runID       string
	maxAttempts int

	// sleep is injectable so tests don't wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a runner. The cache may be nil (disabled). MaxAttempts below 1
// is clamped to 1: every instance gets at least one call.
func New(provider llm.Provider, cfg *model.Config, respCache cache.Cache, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	maxAttempts := cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{
		provider:    provider,
		cfg:         cfg,
		limiter:     NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		cache:       respCache,
		log:         log,
		runID:       uuid.NewString(),
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run executes the instance set and returns one record per executed
// instance, plus the batch summary. With skipExisting, instances whose ID
// already has a successful record in existing are not re-executed.
func (r *Runner) Run(ctx context.Context, instances []model.PromptInstance, existing map[string]model.ResponseRecord, skipExisting bool) ([]model.ResponseRecord, Summary) {
	summary := Summary{Total: len(instances)}

	var pending []model.PromptInstance
	for _, inst := range instances {
		if skipExisting {
			if prev, ok := existing[inst.ID]; ok && prev.Succeeded() {
				summary.Skipped++
				continue
			}
		}
		pending = append(pending, inst)
	}

	pool := NewPool(ctx, r.cfg.Concurrency.Workers)
	pool.Start()
	for _, inst := range pending {
		pool.Submit(&callJob{runner: r, inst: inst})
	}
	results := pool.Wait()

	records := make([]model.ResponseRecord, 0, len(results))
	for _, res := range results {
		rec := res.(*callResult).record
		records = append(records, rec)
		switch {
		case rec.Succeeded() && rec.FromCache:
			summary.Captured++
			summary.Cached++
		case rec.Succeeded() && rec.Attempts > 1:
			summary.Captured++
			summary.Retried++
		case rec.Succeeded():
			summary.Captured++
		default:
			summary.Failed++
		}
	}
	return records, summary
}

type callJob struct {
	runner *Runner
	inst   model.PromptInstance
}

type callResult struct {
	record model.ResponseRecord
}

func (r *callResult) GetError() error {
	if r.record.Error != "" {
		return &llm.AdapterError{Provider: r.record.Provider, Transient: r.record.Transient}
	}
	return nil
}

// Execute performs the model call for one instance, with retry on transient
// failures. Exhausted retries produce an error-tagged record, never a
// batch abort.
func (j *callJob) Execute(ctx context.Context) Result {
	return &callResult{record: j.runner.callOne(ctx, j.inst)}
}

func (r *Runner) callOne(ctx context.Context, inst model.PromptInstance) model.ResponseRecord {
	rec := model.ResponseRecord{
		Schema:     model.SchemaVersion,
		InstanceID: inst.ID,
		RunID:      r.runID,
		Topic:      inst.Topic,
		Conditions: inst.Conditions,
		Provider:   r.provider.Name(),
		Model:      r.modelName(),
		CapturedAt: time.Now().UTC(),
	}

	cacheKey := cache.ResponseKey(rec.Model, inst.Prompt)
	if r.cache != nil {
		if data, ok := r.cache.Get(cacheKey); ok {
			var resp llm.Response
			if err := json.Unmarshal(data, &resp); err == nil && resp.Text != "" {
				rec.Response = resp.Text
				rec.FromCache = true
				rec.Attempts = 0
				return rec
			}
		}
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		rec.Attempts = attempt

		if err := r.limiter.Wait(ctx, rec.Model); err != nil {
			lastErr = err
			break
		}

		resp, err := r.provider.Complete(ctx, llm.Request{
			Prompt:      inst.Prompt,
			InstanceID:  inst.ID,
			Model:       rec.Model,
			Temperature: r.cfg.LLM.Temperature,
			MaxTokens:   r.cfg.LLM.MaxTokens,
		})
		if err == nil {
			rec.Response = resp.Text
			rec.LatencyMS = time.Since(start).Milliseconds()
			if r.cache != nil {
				if data, mErr := json.Marshal(resp); mErr == nil {
					if cErr := r.cache.Set(cacheKey, data, 0); cErr != nil {
						r.log.Debug("cache write failed", zap.String("instance", inst.ID), zap.Error(cErr))
					}
				}
			}
			return rec
		}

		lastErr = err
		if !llm.Transient(err) {
			break
		}
		if attempt < r.maxAttempts {
			backoff := r.cfg.Retry.InitialBackoff * time.Duration(1<<uint(attempt-1))
			r.log.Debug("transient failure, backing off",
				zap.String("instance", inst.ID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if sErr := r.sleep(ctx, backoff); sErr != nil {
				lastErr = sErr
				break
			}
		}
	}

	rec.LatencyMS = time.Since(start).Milliseconds()
	rec.Error = lastErr.Error()
	rec.Transient = llm.Transient(lastErr)
	r.log.Warn("instance failed",
		zap.String("instance", inst.ID),
		zap.Int("attempts", rec.Attempts),
		zap.Error(lastErr))
	return rec
}

func (r *Runner) modelName() string {
	if r.cfg.LLM.Model != "" {
		return r.cfg.LLM.Model
	}
	return r.provider.Name()
}

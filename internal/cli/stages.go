package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/biaslens/internal/model"
	"github.com/ppiankov/biaslens/internal/pipeline"
	"github.com/ppiankov/biaslens/internal/runner"
	"github.com/ppiankov/biaslens/internal/validate"
)

var (
	catalogPath     string
	groundTruthPath string
	outDir          string

	providerName string
	modelName    string
	temperature  float32
	maxTokens    int
	callTimeout  time.Duration
	scriptPath   string

	concurrency  int
	maxAttempts  int
	rps          float64
	skipExisting bool
	noCache      bool

	minSamples  int
	materiality float64
	absTol      float64
	relTol      float64
)

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Expand the catalog into the full set of prompt instances",
	Long: `Expands the bias-dimension catalog over every ground-truth entity into
the complete cartesian product of level combinations, minus declared
exclusions, and writes instances.jsonl. Deterministic: the same catalog
version renders byte-identical prompts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		n, err := p.Design()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Designed %d prompt instances\n", n)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute prompt instances against the configured model",
	Long: `Sends each pending prompt instance to the model adapter with bounded
concurrency, per-model rate limiting, and retry with exponential backoff
on transient failures. A failed instance is recorded and skipped, never
fatal to the batch. With --skip-existing, already-captured instances are
not re-executed.

Example:
  biaslens run --catalog catalog.yaml --ground-truth truth.yaml \
    --provider openai --model gpt-4o-mini --concurrency 4 --skip-existing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := interruptibleContext()
		defer cancel()

		summary, err := p.Run(ctx, skipExisting)
		if err != nil {
			return err
		}
		printRunSummary(summary)
		if ctx.Err() != nil {
			return fmt.Errorf("run aborted: %w", ctx.Err())
		}
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Convert raw responses into signal vectors",
	Long: `Scores every captured response into a signal vector: lexical tone
polarity, focus distribution over known entities, and extracted numeric
claims. Pure and deterministic; identical text always yields identical
signals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		n, err := p.Score(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Scored %d responses\n", n)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute bias findings from signal vectors",
	Long: `Groups signal vectors by condition and computes, per bias dimension,
the controlled marginal effect of each level change. Emits a finding per
(dimension, level pair, entity) whose magnitude reaches the materiality
threshold, graded by a variance-based confidence indicator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		n, err := p.Analyze()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Emitted %d findings\n", n)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check extracted claims against ground truth",
	Long: `Checks every extracted claim against the ground-truth store. A claim
within tolerance verifies consistent (absolute tolerance near zero,
relative otherwise), outside it inconsistent, and a claim with no
ground-truth entry unverifiable. Prints per-condition inconsistency
rates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		rates, err := p.Validate()
		if err != nil {
			return err
		}
		printRates(rates)
		return nil
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run every stage: design, run, score, analyze, validate",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := interruptibleContext()
		defer cancel()
		return p.RunAll(ctx, skipExisting)
	},
}

func init() {
	stageCmds := []*cobra.Command{designCmd, runCmd, scoreCmd, analyzeCmd, validateCmd, pipelineCmd}
	for _, c := range stageCmds {
		c.Flags().StringVar(&catalogPath, "catalog", "catalog.yaml", "bias-dimension catalog file")
		c.Flags().StringVar(&groundTruthPath, "ground-truth", "ground-truth.yaml", "ground-truth file")
		c.Flags().StringVar(&outDir, "out", "./biaslens-out", "output directory for stage files")
		rootCmd.AddCommand(c)
	}

	for _, c := range []*cobra.Command{runCmd, pipelineCmd} {
		c.Flags().StringVar(&providerName, "provider", "openai", "model provider (openai, ollama, scripted)")
		c.Flags().StringVar(&modelName, "model", "", "model name")
		c.Flags().Float32Var(&temperature, "temperature", 0.3, "sampling temperature")
		c.Flags().IntVar(&maxTokens, "max-tokens", 512, "response token limit")
		c.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "per-call timeout")
		c.Flags().StringVar(&scriptPath, "script", "", "canned responses file (scripted provider)")
		c.Flags().IntVar(&concurrency, "concurrency", 4, "worker count")
		c.Flags().IntVar(&maxAttempts, "retries", 3, "max attempts per instance")
		c.Flags().Float64Var(&rps, "rate", 2, "requests per second per model")
		c.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip instances already captured")
		c.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	}

	for _, c := range []*cobra.Command{analyzeCmd, pipelineCmd} {
		c.Flags().IntVar(&minSamples, "min-samples", 2, "group size below which findings are low confidence")
		c.Flags().Float64Var(&materiality, "materiality", 0.15, "minimum |effect| worth reporting")
	}

	for _, c := range []*cobra.Command{validateCmd, pipelineCmd} {
		c.Flags().Float64Var(&absTol, "abs-tol", 0.5, "absolute tolerance for near-zero ground truth")
		c.Flags().Float64Var(&relTol, "rel-tol", 0.05, "relative tolerance otherwise")
	}
}

// buildConfig assembles the explicit config every component receives.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	cfg.LLM.Provider = providerName
	cfg.LLM.Model = modelName
	cfg.LLM.Temperature = temperature
	cfg.LLM.MaxTokens = maxTokens
	cfg.LLM.Timeout = callTimeout
	cfg.LLM.ScriptPath = scriptPath

	switch providerName {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "ollama":
		if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
			cfg.LLM.BaseURL = base
		}
	}

	cfg.Concurrency.Workers = concurrency
	cfg.Retry.MaxAttempts = maxAttempts
	cfg.RateLimit.RequestsPerSecond = rps
	cfg.Cache.Enabled = !noCache
	cfg.Analysis.MinSamples = minSamples
	cfg.Analysis.Materiality = materiality
	cfg.Tolerance.Absolute = absTol
	cfg.Tolerance.Relative = relTol
	cfg.Output.Dir = outDir

	return cfg
}

func newPipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(buildConfig(), catalogPath, groundTruthPath, logger)
}

// interruptibleContext cancels the batch between dispatch units on SIGINT or
// SIGTERM; already-captured records stay intact.
func interruptibleContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printRunSummary(s runner.Summary) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Run Summary\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Instances:          %d\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Captured:           %d\n", s.Captured)
	fmt.Fprintf(os.Stderr, "  Retried successes:  %d\n", s.Retried)
	fmt.Fprintf(os.Stderr, "  Served from cache:  %d\n", s.Cached)
	fmt.Fprintf(os.Stderr, "  Skipped (existing): %d\n", s.Skipped)
	fmt.Fprintf(os.Stderr, "  Permanent failures: %d\n", s.Failed)
	fmt.Fprintf(os.Stderr, "\n")
}

func printRates(rates map[string]validate.ConditionRate) {
	keys := make([]string, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Per-condition inconsistency rates\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════\n")
	for _, k := range keys {
		r := rates[k]
		fmt.Fprintf(os.Stderr, "  %-40s claims=%d consistent=%d inconsistent=%d unverifiable=%d rate=%.2f\n",
			k, r.Total, r.Consistent, r.Inconsistent, r.Unverifiable, r.Inconsistency)
	}
	fmt.Fprintf(os.Stderr, "\n")
}

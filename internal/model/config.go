package model

import "time"

// Config is the explicit configuration passed into every component. There is
// no ambient state: each threshold lives here so unit tests can vary it.
type Config struct {
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Tolerance   ToleranceConfig   `yaml:"tolerance" mapstructure:"tolerance"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the model adapter.
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // openai, ollama, scripted
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"-" mapstructure:"-"` // env only, never persisted
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ScriptPath  string        `yaml:"script_path,omitempty" mapstructure:"script_path"` // scripted provider input
}

// ConcurrencyConfig bounds the runner worker pool.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RetryConfig bounds transient-failure retries in the runner.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
}

// RateLimitConfig throttles model calls per model name.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the layered response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// AnalysisConfig holds the bias-analyzer thresholds.
type AnalysisConfig struct {
	// MinSamples is the smallest per-level group size before a finding is
	// downgraded to low confidence.
	MinSamples int `yaml:"min_samples" mapstructure:"min_samples"`
	// Materiality is the smallest |effect| worth reporting, in signal units
	// (tone is [-1,1], focus weights are [0,1]).
	Materiality float64 `yaml:"materiality" mapstructure:"materiality"`
}

// ToleranceConfig defines when a claimed value counts as consistent with
// ground truth. Absolute tolerance applies when |truth| < AbsolutePivot,
// relative tolerance otherwise.
type ToleranceConfig struct {
	Absolute      float64 `yaml:"absolute" mapstructure:"absolute"`
	Relative      float64 `yaml:"relative" mapstructure:"relative"`
	AbsolutePivot float64 `yaml:"absolute_pivot" mapstructure:"absolute_pivot"`
}

// OutputConfig controls where stage files land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			Model:       "",
			Temperature: 0.3,
			MaxTokens:   512,
			Timeout:     30 * time.Second,
		},
		Concurrency: ConcurrencyConfig{Workers: 4},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".biaslens-cache",
			TTL:     24 * time.Hour,
		},
		Analysis: AnalysisConfig{
			MinSamples:  2,
			Materiality: 0.15,
		},
		Tolerance: ToleranceConfig{
			Absolute:      0.5,
			Relative:      0.05,
			AbsolutePivot: 1.0,
		},
		Output: OutputConfig{Dir: "./biaslens-out"},
	}
}

package runner

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles model calls per model name, so two providers (or two
// models on one provider) never share a budget.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter with a shared default rate.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the model's rate limit clears or ctx is done.
func (l *Limiter) Wait(ctx context.Context, modelName string) error {
	return l.limiterFor(modelName).Wait(ctx)
}

// SetModelRate overrides the limit for one model.
func (l *Limiter) SetModelRate(modelName string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[modelName] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) limiterFor(modelName string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[modelName]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[modelName]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[modelName] = limiter
	return limiter
}

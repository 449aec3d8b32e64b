package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/deusflow/energynews/internal/logger"
)

// ErrBudgetExhausted is returned once a provider has used its per-run budget.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// Limit describes one provider: a steady request rate plus an optional cap on
// the number of requests for the lifetime of the limiter (one run).
type Limit struct {
	RPS    float64
	Burst  int
	Budget int // 0 = unlimited
}

type provider struct {
	limiter *rate.Limiter
	budget  int
	used    int
}

// Limiter manages rate limiting for all external APIs the bot calls.
type Limiter struct {
	mu        sync.Mutex
	providers map[string]*provider
}

func New(limits map[string]Limit) *Limiter {
	l := &Limiter{providers: make(map[string]*provider, len(limits))}
	for name, lim := range limits {
		l.providers[name] = newProvider(lim)
	}
	return l
}

func newProvider(lim Limit) *provider {
	r := rate.Inf
	if lim.RPS > 0 {
		r = rate.Limit(lim.RPS)
	}
	burst := lim.Burst
	if burst < 1 {
		burst = 1
	}
	return &provider{limiter: rate.NewLimiter(r, burst), budget: lim.Budget}
}

// Wait reserves one request for name, blocking until the rate allows it.
// A wait that fails does not count against the budget. Unknown providers are
// not limited.
func (l *Limiter) Wait(ctx context.Context, name string) error {
	l.mu.Lock()
	p, ok := l.providers[name]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	if p.budget > 0 && p.used >= p.budget {
		l.mu.Unlock()
		logger.Warn("rate limit budget reached", "provider", name, "used", p.used, "budget", p.budget)
		return fmt.Errorf("%s: %w", name, ErrBudgetExhausted)
	}
	p.used++
	lim := p.limiter
	l.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		l.mu.Lock()
		p.used--
		l.mu.Unlock()
		return err
	}
	return nil
}

// Remaining is the unused budget for name, or -1 when unlimited.
func (l *Limiter) Remaining(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.providers[name]
	if !ok || p.budget <= 0 {
		return -1
	}
	return p.budget - p.used
}

// GetStats returns used/limit per provider.
func (l *Limiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[string]interface{}, len(l.providers)*2)
	for name, p := range l.providers {
		stats[name+"_used"] = p.used
		stats[name+"_limit"] = p.budget
	}
	return stats
}

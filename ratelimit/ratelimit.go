package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per upstream quota. GitHub meters the
// search API separately from the rest of the REST API.
type Limiter struct {
	search *rate.Limiter
	core   *rate.Limiter
	openai *rate.Limiter
}

// New takes each quota in requests per minute.
func New(searchReqPerMin, coreReqPerMin, openaiReqPerMin int) *Limiter {
	return &Limiter{
		search: perMinute(searchReqPerMin),
		core:   perMinute(coreReqPerMin),
		openai: perMinute(openaiReqPerMin),
	}
}

// Unlimited never blocks. Useful in tests.
func Unlimited() *Limiter {
	inf := rate.NewLimiter(rate.Inf, 1)
	return &Limiter{search: inf, core: inf, openai: inf}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
}

func (l *Limiter) WaitSearch(ctx context.Context) error {
	return l.search.Wait(ctx)
}

func (l *Limiter) WaitCore(ctx context.Context) error {
	return l.core.Wait(ctx)
}

func (l *Limiter) WaitOpenAI(ctx context.Context) error {
	return l.openai.Wait(ctx)
}

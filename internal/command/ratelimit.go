package command

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between commands per source
// identifier. State is bounded by an LRU so unknown sources can't grow it
// without limit. The clock is injected so the policy is testable.
type RateLimiter struct {
	interval time.Duration
	limiters *lru.Cache[string, *rate.Limiter]
	now      func() time.Time
}

func NewRateLimiter(interval time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	cache, _ := lru.New[string, *rate.Limiter](256)
	return &RateLimiter{interval: interval, limiters: cache, now: now}
}

// Allow reports whether the source may run a command right now. A denied
// command is answered, not dropped; the caller turns false into a
// "please wait" response.
func (l *RateLimiter) Allow(source string) bool {
	if l.interval <= 0 {
		return true
	}
	limiter, ok := l.limiters.Get(source)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters.Add(source, limiter)
	}
	return limiter.AllowN(l.now(), 1)
}

// Package ratelimit keeps one token bucket per client IP.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL       = 3 * time.Hour
	defaultCleanupPeriod = 10 * time.Minute
)

// Result describes the outcome of a single check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter allows perHour requests per IP with the given burst.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	perHour  int
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewIPLimiter(perHour, burst int) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perHour) / time.Hour.Seconds()),
		perHour:  perHour,
		burst:    burst,
		idleTTL:  defaultIdleTTL,
		now:      time.Now,
	}
}

// Allow consumes one token for ip.
func (l *IPLimiter) Allow(ip string) Result {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	res := Result{Limit: l.perHour}
	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = int(delay.Round(time.Second).Seconds())
		if res.RetryAfter < 1 {
			res.RetryAfter = 1
		}
		res.ResetAt = now.Add(delay)
		return res
	}
	res.Allowed = true
	res.Remaining = int(v.limiter.TokensAt(now))
	res.ResetAt = now.Add(time.Duration(float64(l.burst-res.Remaining) / float64(l.limit) * float64(time.Second)))
	return res
}

// Run evicts idle visitors until ctx is cancelled.
func (l *IPLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(defaultCleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *IPLimiter) evictIdle() {
	cutoff := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

func (l *IPLimiter) visitorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

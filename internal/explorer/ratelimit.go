package explorer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces explorer requests with one token bucket per endpoint.
// All group scanners of a discovery share it, so a pause ordered by the
// backend (429 with Retry-After) holds every scanner, not just the one
// that was refused.
type RateLimiter struct {
	mu        sync.Mutex
	endpoints map[string]*endpointLimit
	limit     rate.Limit
	burst     int
	now       func() time.Time
}

type endpointLimit struct {
	bucket      *rate.Limiter
	pausedUntil time.Time
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per
// endpoint with the given burst. A non-positive rate disables spacing;
// pauses still apply.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		endpoints: make(map[string]*endpointLimit),
		limit:     limit,
		burst:     max(burst, 1),
		now:       time.Now,
	}
}

// Wait blocks until a request to endpoint may go out or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	e, pause := r.lookup(endpoint)
	if pause > 0 {
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return e.bucket.Wait(ctx)
}

// Pause holds all requests to endpoint for d. Overlapping pauses keep the
// later end.
func (r *RateLimiter) Pause(endpoint string, d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.endpointLocked(endpoint)
	if until := r.now().Add(d); until.After(e.pausedUntil) {
		e.pausedUntil = until
	}
}

// lookup returns the endpoint state and the remaining pause.
func (r *RateLimiter) lookup(endpoint string) (*endpointLimit, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.endpointLocked(endpoint)
	return e, e.pausedUntil.Sub(r.now())
}

func (r *RateLimiter) endpointLocked(endpoint string) *endpointLimit {
	e, ok := r.endpoints[endpoint]
	if !ok {
		e = &endpointLimit{bucket: rate.NewLimiter(r.limit, r.burst)}
		r.endpoints[endpoint] = e
	}
	return e
}

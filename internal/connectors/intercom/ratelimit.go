package intercom

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Intercom allows 10,000 calls per minute per private app, shared across
// the workspace. The bucket paces well below that and the reported window
// catches the rest.
const (
	bucketRate  = 15.0
	bucketBurst = 5

	// lowWater is the remaining-call count below which requests wait for
	// the window to reset.
	lowWater = 10

	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset" // Unix seconds
)

// quota is the last window Intercom reported.
type quota struct {
	remaining int // -1 until a response reports it
	resetAt   time.Time
}

// wait is how long to hold off at now.
func (q quota) wait(now time.Time) time.Duration {
	if q.remaining < 0 || q.remaining >= lowWater {
		return 0
	}
	return q.resetAt.Sub(now)
}

// RateLimiter paces requests with a token bucket and holds them when the
// reported quota runs low.
type RateLimiter struct {
	bucket *rate.Limiter
	now    func() time.Time

	mu    sync.Mutex
	quota quota
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(bucketRate, bucketBurst),
		now:    time.Now,
		quota:  quota{remaining: -1},
	}
}

// Wait takes a token, then sits out the rest of the window if the quota
// is nearly spent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	d := r.quota.wait(r.now())
	r.mu.Unlock()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromResponse records the window from resp's headers. A 429 marks
// the quota as spent even when the headers are missing.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n, err := strconv.Atoi(resp.Header.Get(HeaderRateRemaining)); err == nil {
		r.quota.remaining = n
	}
	if secs, err := strconv.ParseInt(resp.Header.Get(HeaderRateReset), 10, 64); err == nil {
		r.quota.resetAt = time.Unix(secs, 0)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		r.quota.remaining = 0
	}
}

// Remaining returns the last reported remaining calls, or -1 if unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quota.remaining
}

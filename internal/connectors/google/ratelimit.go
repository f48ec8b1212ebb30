package google

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// Limit is a sustained request rate with a burst allowance.
type Limit struct {
	PerSecond float64
	Burst     int
}

// DriveLimit stays below the Drive quota of 12,000 queries per minute
// per user.
var DriveLimit = Limit{PerSecond: 8, Burst: 10}

// defaultBackoff applies when a rate limit error carries no Retry-After.
const defaultBackoff = 30 * time.Second

// RateLimiter paces calls with a token bucket. A rate limit response
// closes it entirely until the backoff window passes.
type RateLimiter struct {
	bucket *rate.Limiter
	now    func() time.Time

	mu         sync.Mutex
	pausedTill time.Time
}

func NewRateLimiter(l Limit) *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(l.PerSecond), l.Burst),
		now:    time.Now,
	}
}

// Wait sits out any backoff window, then takes a token.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if pause := r.pause(); pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.bucket.Wait(ctx)
}

// Allow reports whether a call may go out now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.pause() <= 0 && r.bucket.Allow()
}

// Observe opens a backoff window when err is a rate limit error, honouring
// its Retry-After header.
func (r *RateLimiter) Observe(err error) {
	if !IsRateLimited(err) {
		return
	}
	r.Backoff(retryAfter(err))
}

// Backoff pauses calls for d, or defaultBackoff when d is not positive.
// An open window is only ever extended.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = defaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.pausedTill) {
		r.pausedTill = until
	}
}

func (r *RateLimiter) pause() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pausedTill.Sub(r.now())
}

// retryAfter reads a delay in seconds from the error's Retry-After header.
// HTTP-date values are ignored.
func retryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

package intercom

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	r := NewRateLimiter()
	assert.Equal(t, -1, r.Remaining())

	resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "42")
	resp.Header.Set(HeaderRateReset, "1700000000")
	r.UpdateFromResponse(resp)
	assert.Equal(t, 42, r.Remaining())

	r.UpdateFromResponse(&http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}})
	assert.Equal(t, 0, r.Remaining())

	// A past reset time never blocks.
	require.NoError(t, r.Wait(context.Background()))
}

func TestQuota_Wait(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	reset := now.Add(20 * time.Second)

	tests := []struct {
		name  string
		quota quota
		want  time.Duration
	}{
		{"unknown", quota{remaining: -1, resetAt: reset}, 0},
		{"plenty left", quota{remaining: lowWater, resetAt: reset}, 0},
		{"nearly spent", quota{remaining: lowWater - 1, resetAt: reset}, 20 * time.Second},
		{"spent", quota{remaining: 0, resetAt: reset}, 20 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.quota.wait(now))
		})
	}
}

func TestRateLimiter_WaitHonoursCancellationWhileSpent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRateLimiter()
	r.now = func() time.Time { return now }

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set(HeaderRateReset, "1700000600")
	r.UpdateFromResponse(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

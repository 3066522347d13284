package services

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SMSRateLimiter caps outbound reminder traffic per recipient, so a
// misconfigured schedule cannot drain the Twilio balance. Each number gets
// its own token bucket: maxRequests sends per window, refilled evenly.
type SMSRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	maxRequests int
	window      time.Duration
}

func NewSMSRateLimiter(maxRequests int, window time.Duration) *SMSRateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &SMSRateLimiter{
		buckets:     make(map[string]*rate.Limiter),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow consumes one send slot for the number, or reports that its cap is
// currently exhausted.
func (l *SMSRateLimiter) Allow(number string) error {
	l.mu.Lock()
	bucket, ok := l.buckets[number]
	if !ok {
		bucket = rate.NewLimiter(rate.Every(l.window/time.Duration(l.maxRequests)), l.maxRequests)
		l.buckets[number] = bucket
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		return fmt.Errorf("rate limited: at most %d SMS per %s per number", l.maxRequests, l.window)
	}
	return nil
}

// GetStats reports the configured cap and how many numbers have been seen
// since the last reset.
func (l *SMSRateLimiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"tracked_numbers": len(l.buckets),
		"max_requests":    l.maxRequests,
		"window":          l.window.String(),
	}
}

// Reset drops all per-number state.
func (l *SMSRateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*rate.Limiter)
}

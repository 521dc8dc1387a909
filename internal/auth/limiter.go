package auth

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrTooManyAttempts = errors.New("too many PIN attempts, try again later")

// AttemptLimiter throttles PIN attempts per key (terminal or user). Each key
// may spend max attempts at once, refilled evenly over window.
type AttemptLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	if max < 1 {
		max = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &AttemptLimiter{
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *AttemptLimiter) Allow(key string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	if !limiter.Allow() {
		return ErrTooManyAttempts
	}
	return nil
}

// Reset forgets a key after a successful verification.
func (l *AttemptLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

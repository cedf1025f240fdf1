package limiters

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrOTPRequestRateLimited is returned when an email exceeds its budget.
var ErrOTPRequestRateLimited = errors.New("otp request rate limited")

const defaultIdleTTL = 30 * time.Minute

// OTPRequestConfig controls the per-email bucket.
type OTPRequestConfig struct {
	// Interval is the refill period of one token. Zero disables the limiter.
	Interval time.Duration
	Burst    int
	// IdleTTL evicts buckets not used for this long.
	IdleTTL time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// OTPRequestLimiter throttles OTP sends per normalised email.
type OTPRequestLimiter struct {
	mu      sync.Mutex
	cfg     OTPRequestConfig
	buckets map[string]*bucket
	now     func() time.Time
}

// NewOTPRequestLimiter returns a limiter, or nil when cfg.Interval is zero.
func NewOTPRequestLimiter(cfg OTPRequestConfig, now func() time.Time) *OTPRequestLimiter {
	if cfg.Interval <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &OTPRequestLimiter{cfg: cfg, buckets: make(map[string]*bucket), now: now}
}

// Allow consumes a token for email or returns [ErrOTPRequestRateLimited].
func (l *OTPRequestLimiter) Allow(email string) error {
	if l == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(email))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.cfg.Interval), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.seen = now
	if !b.lim.AllowN(now, 1) {
		return ErrOTPRequestRateLimited
	}
	return nil
}

// Len returns the number of tracked emails.
func (l *OTPRequestLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *OTPRequestLimiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.cfg.IdleTTL {
			delete(l.buckets, k)
		}
	}
}

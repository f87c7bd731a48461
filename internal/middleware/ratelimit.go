package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter allows at most maxRequests per key inside a sliding window
type RateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxRequests int
	window      time.Duration
	now         func() time.Time
	done        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		done:        make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow records a request for key and reports whether it is within the
// limit. When it is not, the second value is how long until a slot frees up.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := rl.prune(rl.attempts[key], now)

	if len(valid) >= rl.maxRequests {
		rl.attempts[key] = valid
		return false, valid[0].Add(rl.window).Sub(now)
	}

	rl.attempts[key] = append(valid, now)
	return true, 0
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) prune(attempts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	var valid []time.Time
	for _, attempt := range attempts {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}
	return valid
}

// cleanup removes old entries periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mutex.Lock()
			now := rl.now()
			for key, attempts := range rl.attempts {
				if valid := rl.prune(attempts, now); len(valid) == 0 {
					delete(rl.attempts, key)
				} else {
					rl.attempts[key] = valid
				}
			}
			rl.mutex.Unlock()
		}
	}
}

// RateLimit limits mutating requests per client. Clients are keyed by
// user id when one is known and by IP otherwise.
func RateLimit(rateLimiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + getClientIP(r)
			if userID, ok := UserIDFromContext(r.Context()); ok {
				key = "user:" + strconv.FormatInt(userID, 10)
			}

			if allowed, wait := rateLimiter.Allow(key); !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

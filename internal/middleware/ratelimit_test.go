package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRateLimiter(t *testing.T, max int, window time.Duration, now *time.Time) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(max, window)
	rl.now = func() time.Time { return *now }
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestRateLimiter(t, 3, time.Minute, &now)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("ip:192.168.1.1")
		assert.True(t, allowed, "request %d should be allowed", i+1)
		now = now.Add(10 * time.Second)
	}

	allowed, wait := rl.Allow("ip:192.168.1.1")
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Second, wait)

	// Different key should still be allowed
	allowed, _ = rl.Allow("ip:192.168.1.2")
	assert.True(t, allowed)

	// First request leaves the window
	now = now.Add(31 * time.Second)
	allowed, _ = rl.Allow("ip:192.168.1.1")
	assert.True(t, allowed)
}

func TestRateLimit_Middleware(t *testing.T) {
	now := time.Now()
	rl := newTestRateLimiter(t, 1, time.Minute, &now)

	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(method string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/carts/products/1/quantity/1", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		if userID > 0 {
			req = req.WithContext(WithUserID(req.Context(), userID))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("POST", 7).Code)

	rr := send("POST", 7)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "61", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests. Please try again later.","code":429}`, rr.Body.String())

	// Reads are never limited
	assert.Equal(t, http.StatusOK, send("GET", 7).Code)

	// Other users and anonymous clients have their own budget
	assert.Equal(t, http.StatusOK, send("PUT", 8).Code)
	assert.Equal(t, http.StatusOK, send("DELETE", 0).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("DELETE", 0).Code)
}

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func postFrom(h http.Handler, remoteAddr, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 2)
	h := rl.Limit(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, postFrom(h, "1.2.3.4:5000", ""))
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_PerPeer(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	h := rl.Limit(http.HandlerFunc(okHandler))

	for _, addr := range []string{"1.1.1.1:1000", "2.2.2.2:1000"} {
		assert.Equal(t, http.StatusOK, postFrom(h, addr, ""), addr)
	}
}

func TestRateLimiter_IgnoresForwardedFor(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(5), 10)
	h := rl.Limit(http.HandlerFunc(okHandler))

	rejected := 0
	for i := 0; i < 100; i++ {
		if postFrom(h, "203.0.113.7:5555", fmt.Sprintf("10.0.0.%d", i)) == http.StatusTooManyRequests {
			rejected++
		}
	}
	assert.GreaterOrEqual(t, rejected, 80)
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "203.0.113.7")
}

func TestRateLimiter_TrustedProxyUsesForwardedFor(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	h := chimiddleware.RealIP(rl.Limit(http.HandlerFunc(okHandler)))

	assert.Equal(t, http.StatusOK, postFrom(h, "10.0.0.1:443", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, postFrom(h, "10.0.0.1:443", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(h, "10.0.0.1:443", "198.51.100.1"))
}

func TestRateLimiter_SweepDropsIdle(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.get("1.1.1.1")
	rl.limiters["1.1.1.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.get("2.2.2.2")

	rl.sweep(10 * time.Minute)
	assert.NotContains(t, rl.limiters, "1.1.1.1")
	assert.Contains(t, rl.limiters, "2.2.2.2")
}

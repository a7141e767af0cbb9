package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fintrack-api/internal/config"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		LoginPath:       "/login",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		AllowedOrigins:  []string{"http://localhost:3000"},
	}
}

func testRouter() http.Handler {
	h, _ := NewRouter(testConfig(), &Deps{})
	return h
}

// refreshCodes posts n cookie-less refresh requests from one peer, each with a
// distinct X-Forwarded-For, and returns the status codes.
func refreshCodes(h http.Handler, n int) []int {
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	return codes
}

func TestRouter_HealthIsPublic(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestRouter_ProtectedRedirectsWithoutSession(t *testing.T) {
	for _, p := range []string{"/v1/transactions", "/v1/reports/dashboard", "/v1/user"} {
		rr := httptest.NewRecorder()
		testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusSeeOther, rr.Code, p)
		assert.Equal(t, "/login", rr.Header().Get("Location"), p)
	}
}

func TestRouter_RefreshCookieWithoutAccessIs401(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/transactions", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt"})
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_LogoutWithoutCookiesSucceeds(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_AuthThrottleKeyedOnPeer(t *testing.T) {
	codes := refreshCodes(testRouter(), 12)
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestRouter_TrustProxyKeysOnForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.TrustProxy = true
	h, _ := NewRouter(cfg, &Deps{})

	for _, code := range refreshCodes(h, 12) {
		assert.Equal(t, http.StatusUnauthorized, code)
	}
}

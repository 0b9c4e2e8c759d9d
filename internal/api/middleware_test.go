package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimitSharedAcrossPorts(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 1)
	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Two connections from one host must drain the same bucket even
	// though the ephemeral ports differ.
	for i, addr := range []string{"10.0.0.1:1111", "10.0.0.1:2222"} {
		req := httptest.NewRequest(http.MethodGet, "/ping/x", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if i > 0 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d from %s: status = %d, want %d", i, addr, rec.Code, want)
		}
	}
}

func TestRateLimitSeparateHosts(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 1)
	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"10.0.0.1:1111", "10.0.0.2:1111"} {
		req := httptest.NewRequest(http.MethodGet, "/ping/x", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request from %s: status = %d, want 200", addr, rec.Code)
		}
	}
}

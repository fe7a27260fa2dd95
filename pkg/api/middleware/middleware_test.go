package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderflow/orderflow/config"
	"github.com/orderflow/orderflow/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_Generated(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected a generated request id in context")
	}
	if rec.Header().Get("X-Request-ID") != captured {
		t.Errorf("response header must echo the request id")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "client-id-1" {
		t.Errorf("request id = %q, want client-id-1", captured)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Global())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{Enabled: false})
	handler := mw(okHandler())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestRateLimit_Enforced(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             2,
	})
	handler := mw(okHandler())

	var rejected int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}
	if rejected != 3 {
		t.Errorf("expected 3 rejections past the burst, got %d", rejected)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             1,
	})
	handler := mw(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client's first request rejected: %d", rec.Code)
	}

	// A different client has its own bucket.
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("second client must not share the first client's bucket: %d", rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientKey(req); got != "10.0.0.1" {
		t.Errorf("clientKey = %q, want 10.0.0.1", got)
	}

	req.RemoteAddr = "unparseable"
	if got := clientKey(req); got != "unparseable" {
		t.Errorf("clientKey = %q, want the raw address", got)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/v1/orders", "/api/v1/orders"},
		{"/api/v1/orders/0e8dd87c-113c-4be9-94b2-d43fcf6c3bf1", "/api/v1/orders/:id"},
		{"/api/v1/orders/12345", "/api/v1/orders/:id"},
		{"/api/v1/orders/0e8dd87c-113c-4be9-94b2-d43fcf6c3bf1/saga", "/api/v1/orders/:id/saga"},
		{"/healthz", "/healthz"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

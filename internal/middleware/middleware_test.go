package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/middleware"
)

// callWithOrigin wraps a simple 200-OK inner handler in the CORS
// middleware, optionally setting an Origin header, and returns the
// recorded response.
func callWithOrigin(t *testing.T, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.CORSMiddleware(inner)
	req := httptest.NewRequest(method, "/test", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestCORSMiddleware_AllowedOrigin verifies an allow-listed origin is
// echoed back.
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	rec := callWithOrigin(t, http.MethodGet, "https://www.torontobiketraffic.ca")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://www.torontobiketraffic.ca" {
		t.Errorf("expected origin echoed back, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestCORSMiddleware_UnknownOrigin verifies an unknown origin gets no
// CORS grant but the request still flows through.
func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	rec := callWithOrigin(t, http.MethodGet, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS grant, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestCORSMiddleware_Preflight verifies OPTIONS requests short-circuit
// with 204.
func TestCORSMiddleware_Preflight(t *testing.T) {
	rec := callWithOrigin(t, http.MethodOptions, "http://localhost:3000")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

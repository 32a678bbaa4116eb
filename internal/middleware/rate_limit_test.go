package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/models"
)

func withSession(r *http.Request, sessionID string) *http.Request {
	claims := &models.SessionClaims{SessionID: sessionID, Username: "admin", Role: models.RoleAdmin}
	return r.WithContext(auth.ContextWithClaims(r.Context(), claims))
}

func TestRateLimitByIP_EnforcesLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d failed with status %d, expected 200", i+1, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"rate_limit_exceeded"`) {
		t.Errorf("expected JSON error body, got %s", w.Body.String())
	}

	// A different client is unaffected
	req = httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "198.51.100.8:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client: got %d, want 200", w.Code)
	}
}

func TestRateLimitBySession(t *testing.T) {
	handler := RateLimitBySession(RateLimitConfig{RequestsPerMinute: 2})(okHandler())

	send := func(method, sessionID string) int {
		req := withSession(httptest.NewRequest(method, "/offers", nil), sessionID)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("POST", "sess-a"); code != http.StatusOK {
		t.Fatalf("first write: %d", code)
	}
	if code := send("PUT", "sess-a"); code != http.StatusOK {
		t.Fatalf("second write: %d", code)
	}
	if code := send("DELETE", "sess-a"); code != http.StatusTooManyRequests {
		t.Errorf("third write: got %d, want 429", code)
	}

	// Reads are never limited
	for i := 0; i < 5; i++ {
		if code := send("GET", "sess-a"); code != http.StatusOK {
			t.Fatalf("read %d: %d", i+1, code)
		}
	}

	if code := send("POST", "sess-b"); code != http.StatusOK {
		t.Errorf("other session: got %d, want 200", code)
	}
}

func TestSecureLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := RecordUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler := SecureLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, withSession(r, "sess-a"))
	}))

	req := httptest.NewRequest("GET", "/offers?token=abc&search=x", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(context.Background()))

	out := buf.String()
	for _, want := range []string{`"msg":"http_request"`, `"status":418`, `"path":"/offers?[REDACTED]"`, `"username":"admin"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "abc") {
		t.Errorf("query string leaked into log: %s", out)
	}
}

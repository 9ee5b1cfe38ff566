package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf, Component: log.ComponentHTTP})
	m := NewMiddleware(logger, func(r *http.Request) string { return "198.51.100.1" })

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/debts", nil))

	if !strings.HasPrefix(seenID, "req_") || len(seenID) != len("req_")+32 {
		t.Errorf("request id = %q", seenID)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("%s header = %q, want %q", RequestIDHeader, got, seenID)
	}
	if seenLogger == nil || seenLogger.Component() != log.ComponentHTTP {
		t.Errorf("request logger missing from context")
	}

	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=404", "request_id=" + seenID, "client_ip=198.51.100.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	if got := m.GetMetrics(); got.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", got.TotalRequests)
	}
}

func TestIncomingRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"absent", "", ""},
		{"accepted", "abc-123", "abc-123"},
		{"spaces rejected", "abc 123", ""},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			if got := incomingRequestID(req); got != tt.want {
				t.Errorf("incomingRequestID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Level: slog.LevelError, Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "caller-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "caller-42" {
		t.Errorf("%s = %q, want caller-42", RequestIDHeader, got)
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/practice-crm/pkg/logging"
)

func TestRequestLoggerRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("debug", &buf)

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false}`))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/abc/send", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id header, got %q", got)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Fatalf("expected WARN for 4xx, got %v", entry["level"])
	}
	if entry["status"] != float64(http.StatusConflict) {
		t.Fatalf("expected status 409, got %v", entry["status"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("expected request id in log, got %v", entry["request_id"])
	}
	if entry["path"] != "/api/accounts/abc/send" {
		t.Fatalf("unexpected path %v", entry["path"])
	}
}

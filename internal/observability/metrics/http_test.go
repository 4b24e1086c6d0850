package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorderDefaults(t *testing.T) {
	recorder := NewStatusRecorder(httptest.NewRecorder())
	if recorder.Status() != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", recorder.Status())
	}
	if recorder.BytesWritten() != 0 {
		t.Fatalf("expected 0 bytes before writes, got %d", recorder.BytesWritten())
	}
}

func TestStatusRecorderCapturesWrites(t *testing.T) {
	underlying := httptest.NewRecorder()
	recorder := NewStatusRecorder(underlying)

	recorder.WriteHeader(http.StatusTooManyRequests)
	if _, err := recorder.Write([]byte(`{"error":"rate limit exceeded"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if recorder.Status() != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Status())
	}
	if recorder.BytesWritten() != underlying.Body.Len() {
		t.Fatalf("expected %d bytes, got %d", underlying.Body.Len(), recorder.BytesWritten())
	}
}

func TestNormalizePath(t *testing.T) {
	if got := normalizePath("/v1/scans/0f9ad1c2"); got != "/v1/scans/{scan_id}" {
		t.Fatalf("expected scan id collapsed, got %s", got)
	}
	if got := normalizePath("/healthz"); got != "/healthz" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glowlab/dermascan/internal/observability/metrics"
)

const requestIDHeader = "X-Request-Id"

// requestTrace travels with one request so the access log can report how the
// scan pipeline resolved, not just the HTTP status. The scan handler fills
// the outcome fields after the pipeline returns.
type requestTrace struct {
	ID            string
	ScanOutcome   string
	DegradeReason string
	PollAttempts  int
}

type traceContextKey struct{}

func traceFromContext(ctx context.Context) *requestTrace {
	trace, _ := ctx.Value(traceContextKey{}).(*requestTrace)
	return trace
}

// withTrace assigns every request an id (a caller-supplied X-Request-Id is
// honored, it becomes the scan request id downstream) and seeds the mutable
// trace record.
func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		trace := &requestTrace{ID: id}

		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), traceContextKey{}, trace)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequests writes one structured line per request. Scan requests carry
// their pipeline outcome alongside the transport fields so a degraded report
// is visible in the log even though it answers 200.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := metrics.NewStatusRecorder(w)

		next.ServeHTTP(recorder, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.Status(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", recorder.BytesWritten(),
		}
		if trace := traceFromContext(r.Context()); trace != nil {
			attrs = append(attrs, "request_id", trace.ID)
			if trace.ScanOutcome != "" {
				attrs = append(attrs, "scan_outcome", trace.ScanOutcome)
			}
			if trace.DegradeReason != "" {
				attrs = append(attrs, "degrade_reason", trace.DegradeReason)
			}
			if trace.PollAttempts > 0 {
				attrs = append(attrs, "poll_attempts", trace.PollAttempts)
			}
		}

		switch {
		case recorder.Status() >= 500:
			slog.Error("http_request", attrs...)
		case recorder.Status() >= 400:
			slog.Warn("http_request", attrs...)
		default:
			slog.Info("http_request", attrs...)
		}
	})
}

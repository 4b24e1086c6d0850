package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/glowlab/dermascan/internal/config"
	"github.com/glowlab/dermascan/internal/core/domain"
	"github.com/glowlab/dermascan/internal/core/ports"
	"github.com/glowlab/dermascan/internal/observability/metrics"
)

const (
	multipartMemoryLimit = 32 << 20
	imagesFieldName      = "images"
)

type Router struct {
	cfg     config.Config
	scanUC  ports.ScanService
	metrics *metrics.ServerMetrics
}

func NewRouter(cfg config.Config, scanUC ports.ScanService, m *metrics.ServerMetrics) *Router {
	return &Router{
		cfg:     cfg,
		scanUC:  scanUC,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/scans", rt.createScan)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrentScans, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = logRequests(handler)
	handler = withTrace(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createScan accepts 1-3 multipart images (field "images", first is primary)
// and always answers with a complete report unless the input itself is
// invalid.
func (rt *Router) createScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, err := rt.buildScanRequest(r)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	trace := traceFromContext(r.Context())
	report, err := rt.scanUC.Scan(r.Context(), req)
	if err != nil {
		if trace != nil {
			trace.ScanOutcome = "rejected"
		}
		rt.recordScan("rejected", "", 0, time.Since(start))
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	outcome := "ok"
	if report.Degraded {
		outcome = "degraded"
	}
	if trace != nil {
		trace.ScanOutcome = outcome
		trace.DegradeReason = report.DegradeReason
		trace.PollAttempts = report.PollAttempts
	}
	rt.recordScan(outcome, report.DegradeReason, report.PollAttempts, time.Since(start))
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) buildScanRequest(r *http.Request) (*domain.ScanRequest, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse multipart", err)
	}

	headers := r.MultipartForm.File[imagesFieldName]
	images := make([]domain.ImageInput, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "open image part", err)
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read image part", err)
		}
		images = append(images, domain.ImageInput{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	id := ""
	if trace := traceFromContext(r.Context()); trace != nil {
		id = trace.ID
	}
	return &domain.ScanRequest{
		ID:         id,
		Images:     images,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

func (rt *Router) recordScan(outcome, reason string, pollAttempts int, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordScan(rt.cfg.ServiceName, outcome, reason, pollAttempts, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

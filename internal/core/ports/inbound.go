package ports

import (
	"context"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// ScanService runs the full scan pipeline for one request. The only error it
// may return is a validation error; every other failure mode resolves into a
// complete degraded report.
type ScanService interface {
	Scan(ctx context.Context, req *domain.ScanRequest) (*domain.Report, error)
}

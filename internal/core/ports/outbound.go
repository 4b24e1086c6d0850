package ports

import (
	"context"
	"time"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// VisionAnalyzer drives the vendor's asynchronous image-analysis workflow.
type VisionAnalyzer interface {
	// Submit uploads the request images and creates one vendor task. It is
	// attempted exactly once; any rejection is terminal for the stage.
	Submit(ctx context.Context, req *domain.ScanRequest) (*domain.TaskHandle, error)
	// Await polls the task until a terminal status, never spending more than
	// ceiling of wall-clock time. It mutates handle.Attempts and handle.Status.
	Await(ctx context.Context, handle *domain.TaskHandle, ceiling time.Duration) (domain.ChannelResults, error)
}

// NarrativeGenerator produces per-dimension narrative overrides from the
// assembled dimension drafts. Failure degrades narrative content only.
type NarrativeGenerator interface {
	Enrich(ctx context.Context, dims []domain.ReportDimension) (map[string]domain.Narrative, error)
}

// ScanAuditLog records one operational row per resolved scan. Best effort:
// callers log failures and move on.
type ScanAuditLog interface {
	Record(ctx context.Context, rec domain.ScanRecord) error
}

// EventPublisher announces resolved scans to downstream consumers. Best effort.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, event domain.ScanCompletedEvent) error
}

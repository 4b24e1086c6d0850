package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowlab/dermascan/internal/core/domain"
	"github.com/glowlab/dermascan/internal/core/ports"
)

const (
	degradeReasonConfiguration = "configuration"
	degradeReasonBudget        = "budget"
	degradeReasonSubmission    = "submission"
	degradeReasonVendorError   = "vendor_error"
	degradeReasonPollTimeout   = "poll_timeout"
	degradeReasonTransport     = "transport"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ScanConfig carries the per-stage budget thresholds of one coordinator. The
// reserved tail keeps extraction, assembly and response serialization from
// being starved by the poll loop.
type ScanConfig struct {
	TotalBudget        time.Duration
	ReservedTail       time.Duration
	SubmitMinBudget    time.Duration
	PollMinBudget      time.Duration
	NarrativeMinBudget time.Duration
	NarrativeTimeout   time.Duration
	MaxImageBytes      int
}

func (c ScanConfig) normalize() ScanConfig {
	out := c
	if out.TotalBudget <= 0 {
		out.TotalBudget = 28 * time.Second
	}
	if out.ReservedTail <= 0 {
		out.ReservedTail = 2 * time.Second
	}
	if out.SubmitMinBudget <= 0 {
		out.SubmitMinBudget = 3 * time.Second
	}
	if out.PollMinBudget <= 0 {
		out.PollMinBudget = 2 * time.Second
	}
	if out.NarrativeMinBudget <= 0 {
		out.NarrativeMinBudget = 3 * time.Second
	}
	if out.NarrativeTimeout <= 0 {
		out.NarrativeTimeout = 8 * time.Second
	}
	if out.MaxImageBytes <= 0 {
		out.MaxImageBytes = 8 << 20
	}
	return out
}

// ScanUseCase coordinates one scan request end to end: precheck, vendor
// submit+poll, metric extraction, report assembly, optional narrative
// enrichment, and the degraded fallback whenever any of those cannot finish
// inside the budget. It holds no state across requests.
type ScanUseCase struct {
	cfg       ScanConfig
	vision    ports.VisionAnalyzer
	narrative ports.NarrativeGenerator
	audit     ports.ScanAuditLog
	events    ports.EventPublisher
	assembler *ReportAssembler
	synth     *FallbackSynthesizer
}

func NewScanUseCase(
	cfg ScanConfig,
	profile ScanProfile,
	vision ports.VisionAnalyzer,
	narrative ports.NarrativeGenerator,
	audit ports.ScanAuditLog,
	events ports.EventPublisher,
) *ScanUseCase {
	return &ScanUseCase{
		cfg:       cfg.normalize(),
		vision:    vision,
		narrative: narrative,
		audit:     audit,
		events:    events,
		assembler: NewReportAssembler(profile),
		synth:     NewFallbackSynthesizer(profile),
	}
}

// Scan returns an error only for invalid input; every other failure mode
// resolves into a complete degraded report.
func (uc *ScanUseCase) Scan(ctx context.Context, req *domain.ScanRequest) (*domain.Report, error) {
	budget := domain.NewTimeBudget(uc.cfg.TotalBudget)
	stage := domain.StageInit

	uc.advance(req.ID, &stage, domain.StagePrecheck)
	if err := uc.precheck(req); err != nil {
		return nil, err
	}

	if uc.vision == nil {
		slog.Error("vision_not_configured", "request_id", req.ID)
		return uc.degrade(ctx, req, budget, &stage, degradeReasonConfiguration, 0), nil
	}

	uc.advance(req.ID, &stage, domain.StageSubmitVision)
	if budget.Remaining() < uc.cfg.SubmitMinBudget+uc.cfg.ReservedTail {
		return uc.degrade(ctx, req, budget, &stage, degradeReasonBudget, 0), nil
	}
	handle, err := uc.vision.Submit(ctx, req)
	if err != nil {
		slog.Warn("vision_submit_failed", "request_id", req.ID, "error", err)
		return uc.degrade(ctx, req, budget, &stage, degradeReasonSubmission, 0), nil
	}

	uc.advance(req.ID, &stage, domain.StagePollVision)
	ceiling := budget.Remaining() - uc.cfg.ReservedTail
	if ceiling < uc.cfg.PollMinBudget {
		return uc.degrade(ctx, req, budget, &stage, degradeReasonBudget, 0), nil
	}
	channels, err := uc.vision.Await(ctx, handle, ceiling)
	if err != nil {
		slog.Warn("vision_poll_failed",
			"request_id", req.ID,
			"task_id", handle.TaskID,
			"attempts", handle.Attempts,
			"error", err,
		)
		return uc.degrade(ctx, req, budget, &stage, pollDegradeReason(err), handle.Attempts), nil
	}

	uc.advance(req.ID, &stage, domain.StageExtractMetrics)
	signals := uc.assembler.DeriveSignals(channels)

	uc.advance(req.ID, &stage, domain.StageAssembleReport)
	dims := uc.assembler.DeriveDimensions(signals, nil, false)

	if overrides := uc.tryEnrich(ctx, req, budget, &stage, dims); overrides != nil {
		dims = uc.assembler.DeriveDimensions(signals, overrides, false)
	}

	uc.advance(req.ID, &stage, domain.StageDone)
	headline, detail := uc.assembler.BuildSummaries(dims, false)
	report := &domain.Report{
		RequestID:       req.ID,
		ProducedAt:      time.Now().UTC(),
		Degraded:        false,
		PollAttempts:    handle.Attempts,
		Signals:         signals,
		Dimensions:      dims,
		SummaryHeadline: headline,
		SummaryDetail:   detail,
	}
	uc.finish(ctx, report, stage, budget)
	return report, nil
}

func (uc *ScanUseCase) precheck(req *domain.ScanRequest) error {
	count := len(req.Images)
	if count < domain.MinScanImages || count > domain.MaxScanImages {
		return domain.WrapError(domain.ErrInvalidInput, "precheck",
			fmt.Errorf("expected %d-%d images, got %d", domain.MinScanImages, domain.MaxScanImages, count))
	}
	for i, img := range req.Images {
		if len(img.Data) == 0 {
			return domain.WrapError(domain.ErrInvalidInput, "precheck",
				fmt.Errorf("image %d is empty", i))
		}
		if len(img.Data) > uc.cfg.MaxImageBytes {
			return domain.WrapError(domain.ErrInvalidInput, "precheck",
				fmt.Errorf("image %d exceeds %d bytes", i, uc.cfg.MaxImageBytes))
		}
		if !allowedImageTypes[img.ContentType] {
			return domain.WrapError(domain.ErrInvalidInput, "precheck",
				fmt.Errorf("image %d has unsupported content type %q", i, img.ContentType))
		}
	}
	return nil
}

// tryEnrich attempts the optional narrative stage. Its failure or a too-small
// remaining budget degrades narrative content only: the report keeps template
// copy and the degraded flag is untouched because vision metrics stay valid.
func (uc *ScanUseCase) tryEnrich(
	ctx context.Context,
	req *domain.ScanRequest,
	budget *domain.TimeBudget,
	stage *domain.PipelineStage,
	dims []domain.ReportDimension,
) map[string]domain.Narrative {
	if uc.narrative == nil {
		return nil
	}
	remaining := budget.Remaining()
	if remaining < uc.cfg.NarrativeMinBudget+uc.cfg.ReservedTail {
		slog.Info("narrative_skipped_budget", "request_id", req.ID, "remaining_ms", remaining.Milliseconds())
		return nil
	}

	uc.advance(req.ID, stage, domain.StageEnrichNarrative)
	timeout := uc.cfg.NarrativeTimeout
	if window := remaining - uc.cfg.ReservedTail; window < timeout {
		timeout = window
	}
	enrichCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	overrides, err := uc.narrative.Enrich(enrichCtx, dims)
	if err != nil {
		slog.Warn("narrative_enrichment_failed", "request_id", req.ID, "error", err)
		return nil
	}
	return overrides
}

// degrade is the universal escape: synthesize deterministic channels from the
// request id and assemble a complete report with degraded=true.
func (uc *ScanUseCase) degrade(
	ctx context.Context,
	req *domain.ScanRequest,
	budget *domain.TimeBudget,
	stage *domain.PipelineStage,
	reason string,
	pollAttempts int,
) *domain.Report {
	uc.advance(req.ID, stage, domain.StageDegraded)

	channels := uc.synth.Synthesize(req.ID)
	signals := uc.assembler.DeriveSignals(channels)
	dims := uc.assembler.DeriveDimensions(signals, nil, true)
	headline, detail := uc.assembler.BuildSummaries(dims, true)

	uc.advance(req.ID, stage, domain.StageDone)
	report := &domain.Report{
		RequestID:       req.ID,
		ProducedAt:      time.Now().UTC(),
		Degraded:        true,
		DegradeReason:   reason,
		PollAttempts:    pollAttempts,
		Signals:         signals,
		Dimensions:      dims,
		SummaryHeadline: headline,
		SummaryDetail:   detail,
	}
	uc.finish(ctx, report, domain.StageDegraded, budget)
	return report
}

// finish performs the best-effort post-resolution work: audit row and
// completion event. Failures are logged, never surfaced.
func (uc *ScanUseCase) finish(ctx context.Context, report *domain.Report, stage domain.PipelineStage, budget *domain.TimeBudget) {
	if uc.audit == nil && uc.events == nil {
		return
	}
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if uc.audit != nil {
		rec := domain.ScanRecord{
			RequestID:     report.RequestID,
			Degraded:      report.Degraded,
			DegradeReason: report.DegradeReason,
			StageReached:  stage,
			PollAttempts:  report.PollAttempts,
			Duration:      budget.Elapsed(),
			ProducedAt:    report.ProducedAt,
		}
		if err := uc.audit.Record(postCtx, rec); err != nil {
			slog.Warn("scan_audit_failed", "request_id", report.RequestID, "error", err)
		}
	}
	if uc.events != nil {
		event := domain.ScanCompletedEvent{
			RequestID:  report.RequestID,
			Degraded:   report.Degraded,
			ProducedAt: report.ProducedAt,
		}
		if err := uc.events.PublishScanCompleted(postCtx, event); err != nil {
			slog.Warn("scan_event_publish_failed", "request_id", report.RequestID, "error", err)
		}
	}
}

func (uc *ScanUseCase) advance(requestID string, stage *domain.PipelineStage, to domain.PipelineStage) {
	if !domain.ValidTransition(*stage, to) {
		slog.Error("invalid_stage_transition", "request_id", requestID, "from", stage.String(), "to", to.String())
		return
	}
	slog.Debug("pipeline_stage", "request_id", requestID, "from", stage.String(), "to", to.String())
	*stage = to
}

func pollDegradeReason(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrBudgetExceeded):
		return degradeReasonPollTimeout
	case domain.IsKind(err, domain.ErrVendorTerminal):
		return degradeReasonVendorError
	default:
		return degradeReasonTransport
	}
}

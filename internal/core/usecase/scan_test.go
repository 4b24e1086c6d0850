package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowlab/dermascan/internal/core/domain"
)

type visionFake struct {
	submitErr error
	awaitErr  error
	channels  domain.ChannelResults
	attempts  int

	submitted *domain.ScanRequest
	ceiling   time.Duration
}

func (f *visionFake) Submit(_ context.Context, req *domain.ScanRequest) (*domain.TaskHandle, error) {
	f.submitted = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &domain.TaskHandle{TaskID: "task-1", Stage: domain.StageSubmitVision, Status: domain.TaskPending}, nil
}

func (f *visionFake) Await(_ context.Context, handle *domain.TaskHandle, ceiling time.Duration) (domain.ChannelResults, error) {
	f.ceiling = ceiling
	handle.Attempts = f.attempts
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.channels, nil
}

type narrativeFake struct {
	overrides map[string]domain.Narrative
	err       error
	called    bool
}

func (f *narrativeFake) Enrich(context.Context, []domain.ReportDimension) (map[string]domain.Narrative, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.overrides, nil
}

type auditFake struct {
	record *domain.ScanRecord
	err    error
}

func (f *auditFake) Record(_ context.Context, rec domain.ScanRecord) error {
	if f.err != nil {
		return f.err
	}
	copyRec := rec
	f.record = &copyRec
	return nil
}

type eventsFake struct {
	event *domain.ScanCompletedEvent
	err   error
}

func (f *eventsFake) PublishScanCompleted(_ context.Context, event domain.ScanCompletedEvent) error {
	if f.err != nil {
		return f.err
	}
	copyEvent := event
	f.event = &copyEvent
	return nil
}

func validRequest() *domain.ScanRequest {
	return &domain.ScanRequest{
		ID: "req-1",
		Images: []domain.ImageInput{
			{Name: "face.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")},
		},
		ReceivedAt: time.Now().UTC(),
	}
}

func vendorChannels(raw float64) domain.ChannelResults {
	results := domain.ChannelResults{}
	for _, channel := range DefaultProfile().Channels {
		results[channel] = domain.ChannelResult{Raw: raw}
	}
	return results
}

func assertCompleteReport(t *testing.T, report *domain.Report) {
	t.Helper()
	profile := DefaultProfile()
	if len(report.Signals) != len(profile.Signals) {
		t.Fatalf("expected %d signals, got %d", len(profile.Signals), len(report.Signals))
	}
	if len(report.Dimensions) != len(profile.Dimensions) {
		t.Fatalf("expected %d dimensions, got %d", len(profile.Dimensions), len(report.Dimensions))
	}
	for _, d := range report.Dimensions {
		if d.Narrative.Finding == "" || d.Narrative.Mechanism == "" || d.Narrative.Action == "" {
			t.Fatalf("dimension %s has incomplete narrative", d.ID)
		}
	}
	if report.SummaryHeadline == "" || report.SummaryDetail == "" {
		t.Fatalf("expected populated summaries")
	}
}

func TestScanRejectsInvalidInput(t *testing.T) {
	vision := &visionFake{}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, nil, nil, nil)

	cases := []*domain.ScanRequest{
		{ID: "empty", Images: nil},
		{ID: "too-many", Images: []domain.ImageInput{
			{ContentType: "image/jpeg", Data: []byte("a")},
			{ContentType: "image/jpeg", Data: []byte("b")},
			{ContentType: "image/jpeg", Data: []byte("c")},
			{ContentType: "image/jpeg", Data: []byte("d")},
		}},
		{ID: "empty-buffer", Images: []domain.ImageInput{{ContentType: "image/jpeg"}}},
		{ID: "bad-type", Images: []domain.ImageInput{{ContentType: "image/gif", Data: []byte("gif")}}},
	}
	for _, req := range cases {
		report, err := uc.Scan(context.Background(), req)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("request %s: expected invalid input, got report=%v err=%v", req.ID, report, err)
		}
	}
	if vision.submitted != nil {
		t.Fatalf("rejected requests must never reach the vendor")
	}
}

func TestScanRejectsOversizedImage(t *testing.T) {
	uc := NewScanUseCase(ScanConfig{MaxImageBytes: 4}, DefaultProfile(), &visionFake{}, nil, nil, nil)

	req := validRequest()
	req.Images[0].Data = []byte("five!")
	_, err := uc.Scan(context.Background(), req)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestScanDegradesWithoutVisionVendor(t *testing.T) {
	audit := &auditFake{}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), nil, nil, audit, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !report.Degraded {
		t.Fatalf("expected degraded report")
	}
	if report.DegradeReason != degradeReasonConfiguration {
		t.Fatalf("expected configuration reason, got %s", report.DegradeReason)
	}
	assertCompleteReport(t, report)
	if audit.record == nil || audit.record.StageReached != domain.StageDegraded {
		t.Fatalf("expected degraded audit record, got %+v", audit.record)
	}
}

func TestScanDegradesOnSubmissionFailure(t *testing.T) {
	vision := &visionFake{submitErr: domain.WrapError(domain.ErrSubmission, "create task", errors.New("rejected"))}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, nil, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !report.Degraded || report.DegradeReason != degradeReasonSubmission {
		t.Fatalf("expected submission degrade, got %+v", report)
	}
	assertCompleteReport(t, report)
}

func TestScanDegradesOnPollTimeout(t *testing.T) {
	vision := &visionFake{
		awaitErr: domain.WrapError(domain.ErrBudgetExceeded, "poll task", errors.New("ceiling reached")),
		attempts: 6,
	}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, nil, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !report.Degraded || report.DegradeReason != degradeReasonPollTimeout {
		t.Fatalf("expected poll timeout degrade, got %+v", report)
	}
	if report.PollAttempts != 6 {
		t.Fatalf("expected 6 poll attempts, got %d", report.PollAttempts)
	}
	assertCompleteReport(t, report)
	for _, d := range report.Dimensions {
		if d.Confidence != DefaultProfile().SyntheticConfidence {
			t.Fatalf("expected synthetic confidence, got %v", d.Confidence)
		}
	}
}

func TestScanDegradesOnVendorError(t *testing.T) {
	vision := &visionFake{
		awaitErr: domain.WrapError(domain.ErrVendorTerminal, "task status", errors.New("unprocessable image")),
		attempts: 2,
	}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, nil, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.DegradeReason != degradeReasonVendorError {
		t.Fatalf("expected vendor error degrade, got %s", report.DegradeReason)
	}
}

func TestScanDegradedReportsAreDeterministic(t *testing.T) {
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), nil, nil, nil, nil)

	first, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	second, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	for i := range first.Signals {
		if first.Signals[i].Score != second.Signals[i].Score {
			t.Fatalf("signal %s diverged across retries", first.Signals[i].ID)
		}
	}
}

func TestScanSuccessWithNarrative(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(90), attempts: 3}
	narrative := &narrativeFake{overrides: map[string]domain.Narrative{
		"clarity": {Finding: "Clear skin.", Mechanism: "Low congestion.", Action: "Keep routine."},
	}}
	audit := &auditFake{}
	events := &eventsFake{}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, narrative, audit, events)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.Degraded {
		t.Fatalf("expected non-degraded report")
	}
	if report.PollAttempts != 3 {
		t.Fatalf("expected 3 poll attempts, got %d", report.PollAttempts)
	}
	assertCompleteReport(t, report)

	if !narrative.called {
		t.Fatalf("expected narrative enrichment call")
	}
	found := false
	for _, d := range report.Dimensions {
		if d.ID == "clarity" {
			found = true
			if d.Narrative.Finding != "Clear skin." {
				t.Fatalf("expected override narrative, got %+v", d.Narrative)
			}
		}
	}
	if !found {
		t.Fatalf("clarity dimension not found")
	}
	if audit.record == nil || audit.record.Degraded {
		t.Fatalf("expected non-degraded audit record, got %+v", audit.record)
	}
	if events.event == nil || events.event.RequestID != "req-1" {
		t.Fatalf("expected completion event, got %+v", events.event)
	}
}

func TestScanNarrativeFailureKeepsTemplates(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(85)}
	narrative := &narrativeFake{err: domain.WrapError(domain.ErrNarrative, "chat completion", errors.New("503"))}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, narrative, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.Degraded {
		t.Fatalf("narrative failure must not flip the degraded flag")
	}
	profile := DefaultProfile()
	for _, d := range report.Dimensions {
		if d.Narrative != profile.FallbackNarratives[d.ID] {
			t.Fatalf("dimension %s: expected template narrative after failure", d.ID)
		}
		if d.Confidence != profile.BaseConfidence {
			t.Fatalf("dimension %s: vision metrics stay fully confident", d.ID)
		}
	}
}

func TestScanSkipsNarrativeWhenBudgetShort(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(85)}
	narrative := &narrativeFake{overrides: map[string]domain.Narrative{}}
	cfg := ScanConfig{
		TotalBudget:        50 * time.Millisecond,
		ReservedTail:       10 * time.Millisecond,
		SubmitMinBudget:    time.Millisecond,
		PollMinBudget:      time.Millisecond,
		NarrativeMinBudget: time.Second,
	}
	uc := NewScanUseCase(cfg, DefaultProfile(), vision, narrative, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.Degraded {
		t.Fatalf("skipped narrative must not degrade the report")
	}
	if narrative.called {
		t.Fatalf("expected narrative stage to be skipped on short budget")
	}
}

func TestScanDegradesWhenBudgetCannotCoverSubmit(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(85)}
	cfg := ScanConfig{
		TotalBudget:     10 * time.Millisecond,
		ReservedTail:    2 * time.Second,
		SubmitMinBudget: 3 * time.Second,
	}
	uc := NewScanUseCase(cfg, DefaultProfile(), vision, nil, nil, nil)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !report.Degraded || report.DegradeReason != degradeReasonBudget {
		t.Fatalf("expected budget degrade, got %+v", report)
	}
	if vision.submitted != nil {
		t.Fatalf("submit must not run on an exhausted budget")
	}
}

func TestScanPollCeilingReservesTail(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(85)}
	cfg := ScanConfig{
		TotalBudget:  28 * time.Second,
		ReservedTail: 2 * time.Second,
	}
	uc := NewScanUseCase(cfg, DefaultProfile(), vision, nil, nil, nil)

	if _, err := uc.Scan(context.Background(), validRequest()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if vision.ceiling <= 0 || vision.ceiling > 26*time.Second {
		t.Fatalf("expected ceiling below total minus tail, got %v", vision.ceiling)
	}
}

func TestScanAuditFailureIsSwallowed(t *testing.T) {
	vision := &visionFake{channels: vendorChannels(85)}
	audit := &auditFake{err: errors.New("db down")}
	events := &eventsFake{err: errors.New("broker down")}
	uc := NewScanUseCase(ScanConfig{}, DefaultProfile(), vision, nil, audit, events)

	report, err := uc.Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.Degraded {
		t.Fatalf("side-channel failures must not affect the report")
	}
}

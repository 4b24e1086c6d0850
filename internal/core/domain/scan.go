package domain

import "time"

const (
	MinScanImages = 1
	MaxScanImages = 3
)

// ImageInput is one inbound image buffer. The first image of a request is the
// primary capture the vendor task is built around.
type ImageInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// ScanRequest is immutable once constructed; it is created at the start of
// request handling and discarded after the Report is returned.
type ScanRequest struct {
	ID         string
	Images     []ImageInput
	ReceivedAt time.Time
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskSuccess TaskStatus = "success"
	TaskError   TaskStatus = "error"
	TaskTimeout TaskStatus = "timeout"
)

// TaskHandle identifies one vendor-side asynchronous job and tracks how many
// status polls it has consumed.
type TaskHandle struct {
	TaskID   string
	Stage    PipelineStage
	Attempts int
	Status   TaskStatus
}

// ChannelResult is one raw vendor metric channel. Raw is unclamped.
type ChannelResult struct {
	Raw        float64
	OverlayURL string
}

// ChannelResults maps vendor channel keys to their raw outcomes. Both the real
// vendor path and the synthetic fallback path produce this same shape.
type ChannelResults map[string]ChannelResult

// ScanRecord is the operational audit row written after a scan resolves.
type ScanRecord struct {
	RequestID     string
	Degraded      bool
	DegradeReason string
	StageReached  PipelineStage
	PollAttempts  int
	Duration      time.Duration
	ProducedAt    time.Time
}

// ScanCompletedEvent is the best-effort completion event for downstream consumers.
type ScanCompletedEvent struct {
	RequestID  string    `json:"request_id"`
	Degraded   bool      `json:"degraded"`
	ProducedAt time.Time `json:"produced_at"`
}

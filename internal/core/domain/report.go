package domain

import "time"

type Tone string

const (
	ToneStable    Tone = "stable"
	ToneDeviation Tone = "deviation"
	ToneThreshold Tone = "threshold"
)

// MetricSignal is one UI-facing metric derived from vendor channels. Score is
// always clamped to [0,100]; RawScore keeps the unclamped weighted value.
type MetricSignal struct {
	ID         string  `json:"id"`
	Score      int     `json:"score"`
	RawScore   float64 `json:"raw_score"`
	OverlayURL string  `json:"overlay_url,omitempty"`
}

// Narrative is the per-dimension finding/mechanism/action copy, either
// vendor-generated or a static template.
type Narrative struct {
	Finding   string `json:"finding"`
	Mechanism string `json:"mechanism"`
	Action    string `json:"action"`
}

type ReportDimension struct {
	ID         string    `json:"id"`
	Score      int       `json:"score"`
	Tone       Tone      `json:"tone"`
	Narrative  Narrative `json:"narrative"`
	Confidence float64   `json:"confidence"`
}

// Report is the always-complete response shape: exactly SignalCount signals and
// DimensionCount dimensions regardless of which path produced them.
type Report struct {
	RequestID       string            `json:"request_id"`
	ProducedAt      time.Time         `json:"produced_at"`
	Degraded        bool              `json:"degraded"`
	DegradeReason   string            `json:"-"`
	PollAttempts    int               `json:"-"`
	Signals         []MetricSignal    `json:"signals"`
	Dimensions      []ReportDimension `json:"dimensions"`
	SummaryHeadline string            `json:"summary_headline"`
	SummaryDetail   string            `json:"summary_detail"`
}

// ToneForScore bands a composed score into the three-tier classification.
// Cut points are configuration carried by the scan profile.
func ToneForScore(score, stableMin, deviationMin int) Tone {
	switch {
	case score >= stableMin:
		return ToneStable
	case score >= deviationMin:
		return ToneDeviation
	default:
		return ToneThreshold
	}
}

// ClampScore folds an unclamped weighted value into the [0,100] UI range.
func ClampScore(raw float64) int {
	switch {
	case raw < 0:
		return 0
	case raw > 100:
		return 100
	default:
		return int(raw + 0.5)
	}
}

package usecase

import (
	"fmt"
	"strings"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// ReportAssembler maps raw channel results into the fixed report shape. It
// never fails: missing channels substitute the profile default, missing
// narratives substitute templates, and every score is clamped to [0,100].
type ReportAssembler struct {
	profile ScanProfile
}

func NewReportAssembler(profile ScanProfile) *ReportAssembler {
	return &ReportAssembler{profile: profile}
}

func (a *ReportAssembler) RequestedChannels() []string {
	return a.profile.Channels
}

func (a *ReportAssembler) DeriveSignals(raw domain.ChannelResults) []domain.MetricSignal {
	signals := make([]domain.MetricSignal, 0, len(a.profile.Signals))
	for _, spec := range a.profile.Signals {
		var weighted float64
		var overlay string
		for channel, weight := range spec.Weights {
			result, ok := raw[channel]
			value := a.profile.DefaultRaw
			if ok {
				value = result.Raw
			}
			weighted += weight * value
			if ok && len(spec.Weights) == 1 {
				overlay = result.OverlayURL
			}
		}
		signals = append(signals, domain.MetricSignal{
			ID:         spec.ID,
			Score:      domain.ClampScore(weighted),
			RawScore:   weighted,
			OverlayURL: overlay,
		})
	}
	return signals
}

// DeriveDimensions composes the fixed dimension set from signal scores and
// attaches narrative payloads: the enrichment override when present and
// complete, else the per-dimension template, else the generic template.
func (a *ReportAssembler) DeriveDimensions(
	signals []domain.MetricSignal,
	narratives map[string]domain.Narrative,
	synthetic bool,
) []domain.ReportDimension {
	byID := make(map[string]int, len(signals))
	for _, s := range signals {
		byID[s.ID] = s.Score
	}

	confidence := a.profile.BaseConfidence
	if synthetic {
		confidence = a.profile.SyntheticConfidence
	}

	dims := make([]domain.ReportDimension, 0, len(a.profile.Dimensions))
	for _, spec := range a.profile.Dimensions {
		var weighted float64
		for signalID, weight := range spec.Weights {
			weighted += weight * float64(byID[signalID])
		}
		score := domain.ClampScore(weighted)

		dims = append(dims, domain.ReportDimension{
			ID:         spec.ID,
			Score:      score,
			Tone:       domain.ToneForScore(score, a.profile.ToneStableMin, a.profile.ToneDeviationMin),
			Narrative:  a.narrativeFor(spec.ID, narratives),
			Confidence: confidence,
		})
	}
	return dims
}

func (a *ReportAssembler) narrativeFor(dimensionID string, overrides map[string]domain.Narrative) domain.Narrative {
	if override, ok := overrides[dimensionID]; ok && narrativeComplete(override) {
		return override
	}
	if template, ok := a.profile.FallbackNarratives[dimensionID]; ok {
		return template
	}
	return a.profile.GenericNarrative
}

func narrativeComplete(n domain.Narrative) bool {
	return strings.TrimSpace(n.Finding) != "" &&
		strings.TrimSpace(n.Mechanism) != "" &&
		strings.TrimSpace(n.Action) != ""
}

func (a *ReportAssembler) BuildSummaries(dims []domain.ReportDimension, degraded bool) (string, string) {
	if len(dims) == 0 {
		return "No dimensions available.", ""
	}

	total := 0
	lowest := dims[0]
	for _, d := range dims {
		total += d.Score
		if d.Score < lowest.Score {
			lowest = d
		}
	}
	average := total / len(dims)
	tone := domain.ToneForScore(average, a.profile.ToneStableMin, a.profile.ToneDeviationMin)

	var headline string
	switch tone {
	case domain.ToneStable:
		headline = fmt.Sprintf("Overall skin condition looks stable (average %d).", average)
	case domain.ToneDeviation:
		headline = fmt.Sprintf("Overall skin condition shows mild deviations (average %d).", average)
	default:
		headline = fmt.Sprintf("Several areas need attention (average %d).", average)
	}
	if degraded {
		headline = "Estimated result: " + headline
	}

	detail := fmt.Sprintf("Lowest-scoring area: %s (%d, %s).",
		strings.ReplaceAll(lowest.ID, "_", " "), lowest.Score, lowest.Tone)
	if degraded {
		detail += " Live analysis was unavailable; values are stable estimates for this request."
	}
	return headline, detail
}

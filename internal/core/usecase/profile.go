package usecase

import "github.com/glowlab/dermascan/internal/core/domain"

// SignalSpec composes one UI-facing signal from weighted vendor channels.
type SignalSpec struct {
	ID      string
	Weights map[string]float64
}

// DimensionSpec composes one report dimension from weighted signal scores.
type DimensionSpec struct {
	ID      string
	Weights map[string]float64
}

// ScanProfile is the variation point of the pipeline: channel list, score
// composition weights, tone cut points, and fallback narrative copy are data,
// not code. One coordinator serves any profile.
type ScanProfile struct {
	Channels []string

	// DefaultRaw substitutes any channel the vendor omitted so the fixed
	// signal cardinality always holds.
	DefaultRaw float64

	Signals    []SignalSpec
	Dimensions []DimensionSpec

	ToneStableMin    int
	ToneDeviationMin int

	BaseConfidence      float64
	SyntheticConfidence float64

	// Synthetic fallback scores fold into [SyntheticFloor, SyntheticFloor+SyntheticSpan-1].
	SyntheticFloor int
	SyntheticSpan  int

	FallbackNarratives map[string]domain.Narrative
	GenericNarrative   domain.Narrative
}

func DefaultProfile() ScanProfile {
	return ScanProfile{
		Channels: []string{
			"hydration", "radiance", "texture", "pores", "redness", "blemishes", "elasticity",
		},
		DefaultRaw: 65,

		Signals: []SignalSpec{
			{ID: "hydration", Weights: map[string]float64{"hydration": 1}},
			{ID: "radiance", Weights: map[string]float64{"radiance": 1}},
			{ID: "texture", Weights: map[string]float64{"texture": 1}},
			{ID: "pores", Weights: map[string]float64{"pores": 1}},
			{ID: "redness_calm", Weights: map[string]float64{"redness": 1}},
			{ID: "blemish_control", Weights: map[string]float64{"blemishes": 1}},
			{ID: "elasticity", Weights: map[string]float64{"elasticity": 1}},
			{ID: "barrier", Weights: map[string]float64{"redness": 0.40, "hydration": 0.35, "blemishes": 0.25}},
		},

		Dimensions: []DimensionSpec{
			{ID: "hydration_barrier", Weights: map[string]float64{"hydration": 0.5, "barrier": 0.5}},
			{ID: "clarity", Weights: map[string]float64{"blemish_control": 0.55, "redness_calm": 0.45}},
			{ID: "smoothness", Weights: map[string]float64{"texture": 0.55, "pores": 0.45}},
			{ID: "vitality", Weights: map[string]float64{"radiance": 0.6, "elasticity": 0.4}},
		},

		ToneStableMin:    88,
		ToneDeviationMin: 72,

		BaseConfidence:      0.92,
		SyntheticConfidence: 0.40,

		SyntheticFloor: 58,
		SyntheticSpan:  35,

		FallbackNarratives: map[string]domain.Narrative{
			"hydration_barrier": {
				Finding:   "Moisture levels and barrier resilience are within a typical range.",
				Mechanism: "The lipid barrier regulates transepidermal water loss; small shifts follow climate and cleansing habits.",
				Action:    "Keep a ceramide-based moisturizer in the routine and avoid hot-water cleansing.",
			},
			"clarity": {
				Finding:   "Skin tone is largely even with limited visible blemish activity.",
				Mechanism: "Localized redness and congestion typically track sebum balance and recent irritation.",
				Action:    "Use a gentle, non-comedogenic cleanser and introduce actives gradually.",
			},
			"smoothness": {
				Finding:   "Surface texture and pore visibility are near baseline.",
				Mechanism: "Texture reflects corneocyte turnover; pore appearance varies with hydration and oil flow.",
				Action:    "Consider mild chemical exfoliation once or twice a week.",
			},
			"vitality": {
				Finding:   "Radiance and firmness read as steady for this capture.",
				Mechanism: "Luminosity depends on microcirculation and even surface reflection; elasticity follows collagen density.",
				Action:    "Daily SPF and adequate sleep protect both radiance and elasticity.",
			},
		},
		GenericNarrative: domain.Narrative{
			Finding:   "This area reads within a typical range for the submitted capture.",
			Mechanism: "Composite scores combine several measured channels; no single channel dominated this result.",
			Action:    "Maintain the current routine and rescan in a few weeks to track the trend.",
		},
	}
}

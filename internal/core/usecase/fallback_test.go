package usecase

import "testing"

func TestSynthesizeDeterministic(t *testing.T) {
	synth := NewFallbackSynthesizer(DefaultProfile())

	first := synth.Synthesize("req-123")
	second := synth.Synthesize("req-123")

	if len(first) != len(DefaultProfile().Channels) {
		t.Fatalf("expected %d channels, got %d", len(DefaultProfile().Channels), len(first))
	}
	for channel, result := range first {
		if second[channel] != result {
			t.Fatalf("channel %s diverged: %v vs %v", channel, result, second[channel])
		}
	}
}

func TestSynthesizeBounded(t *testing.T) {
	profile := DefaultProfile()
	synth := NewFallbackSynthesizer(profile)

	seeds := []string{"a", "b", "req-1", "req-2", "0f9ad1c2"}
	for _, seed := range seeds {
		for channel, result := range synth.Synthesize(seed) {
			lower := float64(profile.SyntheticFloor)
			upper := float64(profile.SyntheticFloor + profile.SyntheticSpan - 1)
			if result.Raw < lower || result.Raw > upper {
				t.Fatalf("seed %s channel %s: %v outside [%v,%v]", seed, channel, result.Raw, lower, upper)
			}
			if result.OverlayURL != "" {
				t.Fatalf("synthetic channels must not carry overlays")
			}
		}
	}
}

func TestSynthesizeSeedsDiverge(t *testing.T) {
	synth := NewFallbackSynthesizer(DefaultProfile())

	first := synth.Synthesize("req-a")
	second := synth.Synthesize("req-b")

	same := true
	for channel, result := range first {
		if second[channel] != result {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different seeds to produce different channel sets")
	}
}

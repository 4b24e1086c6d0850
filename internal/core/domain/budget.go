package domain

import "time"

// TimeBudget is the hard wall-clock allotment of one scan request. It is
// created once per request, shared by reference through the pipeline, and
// never reset. Remaining is monotonically non-increasing because it is
// measured against the monotonic clock reading captured at construction.
type TimeBudget struct {
	start time.Time
	total time.Duration
}

func NewTimeBudget(total time.Duration) *TimeBudget {
	return &TimeBudget{start: time.Now(), total: total}
}

func (b *TimeBudget) Remaining() time.Duration {
	left := b.total - time.Since(b.start)
	if left < 0 {
		return 0
	}
	return left
}

func (b *TimeBudget) Elapsed() time.Duration {
	return time.Since(b.start)
}

func (b *TimeBudget) Total() time.Duration {
	return b.total
}

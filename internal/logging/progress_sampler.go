package logging

// ProgressSampler suppresses repetitive progress logs during long row-oriented
// jobs such as CSV imports. It emits on the first row and then each time the
// processed count crosses an interval boundary.
type ProgressSampler struct {
	interval int
	last     int
}

// NewProgressSampler constructs a sampler that emits every interval rows
// (default 500).
func NewProgressSampler(interval int) *ProgressSampler {
	if interval <= 0 {
		interval = 500
	}
	return &ProgressSampler{interval: interval, last: -1}
}

// ShouldLog reports whether a progress line should be written after done rows.
// Counts that do not advance past the last emitted bucket are suppressed.
func (s *ProgressSampler) ShouldLog(done int) bool {
	if s == nil {
		return true
	}
	if done <= 0 {
		return false
	}
	bucket := done / s.interval
	if s.last < 0 || bucket > s.last {
		s.last = bucket
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new import starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.last = -1
}

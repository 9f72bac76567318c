package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs. It emits when the stage
// changes or the percent crosses into a new bucket. A sampler belongs to one
// job and is not safe for concurrent use.
type ProgressSampler struct {
	bucketSize int
	lastStage  string
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent points (default 10).
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged.
func (s *ProgressSampler) ShouldLog(stage string, percent int) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	emit := false
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if percent < 0 {
		return emit
	}
	if percent > 100 {
		percent = 100
	}
	if bucket := percent / s.bucketSize; bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

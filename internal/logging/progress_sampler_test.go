package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "convert") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, "convert") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "convert") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "  retry  ") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "retry" {
		t.Errorf("lastPhase = %q, want retry (trimmed)", s.lastPhase)
	}
}

func TestProgressSamplerPercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
		{95, true},
		{100, true},
		{105, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "convert"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerNegativePercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "scan") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "scan") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "convert")
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(50, "convert") {
		t.Error("should log after reset")
	}
}

package timeline

import (
	"strings"
	"testing"

	"emberforge/internal/pkg/errors"
)

func imageRefs(n int) []AssetRef {
	refs := make([]AssetRef, n)
	for i := range refs {
		refs[i] = AssetRef{
			SourceURL:   "https://cdn.example.com/img.png",
			LocalPath:   "/scratch/img.png",
			ByteSize:    1024,
			ContentType: "image/png",
		}
	}
	return refs
}

func TestPlanValid(t *testing.T) {
	timings := []TimingSpec{
		{StartSeconds: 0, EndSeconds: 5},
		{StartSeconds: 5, EndSeconds: 10},
	}

	plan, err := Plan(imageRefs(2), timings, 10)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if plan.TotalDurationSeconds != 10 {
		t.Errorf("expected total=10, got %v", plan.TotalDurationSeconds)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(plan.Items))
	}
	for i, it := range plan.Items {
		if it.DisplayIndex != i {
			t.Errorf("item %d: expected display index %d, got %d", i, i, it.DisplayIndex)
		}
	}
	if plan.Resolution != (Resolution{Width: 1920, Height: 1080}) {
		t.Errorf("unexpected resolution: %+v", plan.Resolution)
	}
	if plan.FPS != 24 {
		t.Errorf("expected fps=24, got %d", plan.FPS)
	}
}

func TestPlanTotalIsMaxOfAudioAndLastEnd(t *testing.T) {
	// Audio longer than the timeline: the audio defines the nominal duration.
	plan, err := Plan(imageRefs(1), []TimingSpec{{StartSeconds: 0, EndSeconds: 8}}, 9.5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.TotalDurationSeconds != 9.5 {
		t.Errorf("expected total=9.5, got %v", plan.TotalDurationSeconds)
	}

	// Timeline overshoots the audio within tolerance: the last end wins.
	plan, err = Plan(imageRefs(1), []TimingSpec{{StartSeconds: 0, EndSeconds: 10.3}}, 10)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.TotalDurationSeconds != 10.3 {
		t.Errorf("expected total=10.3, got %v", plan.TotalDurationSeconds)
	}
}

func TestPlanValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		images   int
		timings  []TimingSpec
		audio    float64
		contains string
	}{
		{
			name:     "count mismatch",
			images:   2,
			timings:  []TimingSpec{{StartSeconds: 0, EndSeconds: 5}},
			audio:    10,
			contains: "count mismatch",
		},
		{
			name:     "no images",
			images:   0,
			timings:  nil,
			audio:    10,
			contains: "at least one image",
		},
		{
			name:     "start equals end",
			images:   1,
			timings:  []TimingSpec{{StartSeconds: 5, EndSeconds: 5}},
			audio:    10,
			contains: "before endSeconds",
		},
		{
			name:     "start after end",
			images:   1,
			timings:  []TimingSpec{{StartSeconds: 6, EndSeconds: 5}},
			audio:    10,
			contains: "before endSeconds",
		},
		{
			name:     "negative start",
			images:   1,
			timings:  []TimingSpec{{StartSeconds: -1, EndSeconds: 5}},
			audio:    10,
			contains: "must be >= 0",
		},
		{
			name:   "out of display order",
			images: 2,
			timings: []TimingSpec{
				{StartSeconds: 5, EndSeconds: 10},
				{StartSeconds: 0, EndSeconds: 5},
			},
			audio:    10,
			contains: "display order",
		},
		{
			name:     "end beyond audio tolerance",
			images:   1,
			timings:  []TimingSpec{{StartSeconds: 0, EndSeconds: 12}},
			audio:    10,
			contains: "exceeds audio duration",
		},
		{
			name:     "zero audio duration",
			images:   1,
			timings:  []TimingSpec{{StartSeconds: 0, EndSeconds: 5}},
			audio:    0,
			contains: "audio duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(imageRefs(tt.images), tt.timings, tt.audio)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected VALIDATION_ERROR code, got %s", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error to mention %q, got: %v", tt.contains, err)
			}
		})
	}
}

func TestPlanAllowsEndWithinTolerance(t *testing.T) {
	// 10.4s end against 10s audio stays inside the 0.5s tolerance.
	if _, err := Plan(imageRefs(1), []TimingSpec{{StartSeconds: 0, EndSeconds: 10.4}}, 10); err != nil {
		t.Fatalf("expected success within tolerance, got: %v", err)
	}
}

func TestValidateTimingsGapTolerant(t *testing.T) {
	// A gap between end and the next start is allowed; only ordering matters.
	timings := []TimingSpec{
		{StartSeconds: 0, EndSeconds: 3},
		{StartSeconds: 5, EndSeconds: 8},
	}
	if err := ValidateTimings(2, timings); err != nil {
		t.Fatalf("expected gap-tolerant validation, got: %v", err)
	}
}

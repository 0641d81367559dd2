// Package timeline validates the caller-supplied (image, start, end)
// triples against the audio duration and produces the render plan the
// rest of the pipeline consumes.
package timeline

import (
	"emberforge/internal/pkg/errors"
)

// EndToleranceSeconds is how far the last timing endpoint may overshoot
// the audio duration before the request is rejected.
const EndToleranceSeconds = 0.5

// Default output format. The rendered timeline is contiguous: each image
// is shown for end-start seconds in display order, so gaps between
// absolute timings are validated but never rendered.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
	DefaultFPS    = 24
)

// DefaultResolution returns the configured output frame size.
func DefaultResolution() Resolution {
	return Resolution{Width: DefaultWidth, Height: DefaultHeight}
}

// ValidateTimings checks the shape of the timings list against the image
// count without touching any asset. It runs before network fetches so a
// malformed timeline never costs a download.
func ValidateTimings(imageCount int, timings []TimingSpec) error {
	if imageCount == 0 {
		return errors.ValidationField("image_urls", "at least one image is required")
	}
	if imageCount != len(timings) {
		return errors.Validationf("images and timings count mismatch: %d images, %d timings", imageCount, len(timings))
	}

	prevStart := -1.0
	for i, t := range timings {
		if t.StartSeconds < 0 {
			return errors.Validationf("timing %d: startSeconds must be >= 0, got %v", i, t.StartSeconds)
		}
		if t.StartSeconds >= t.EndSeconds {
			return errors.Validationf("timing %d: startSeconds %v must be before endSeconds %v", i, t.StartSeconds, t.EndSeconds)
		}
		if t.StartSeconds < prevStart {
			return errors.Validationf("timing %d: startSeconds %v is before previous start %v; timelines must be in display order", i, t.StartSeconds, prevStart)
		}
		prevStart = t.StartSeconds
	}
	return nil
}

// Plan validates images against timings and the audio duration and builds
// the immutable render plan. Pure function of its inputs; no side effects
// beyond validation.
func Plan(images []AssetRef, timings []TimingSpec, audioDuration float64) (*RenderPlan, error) {
	if err := ValidateTimings(len(images), timings); err != nil {
		return nil, err
	}
	if audioDuration <= 0 {
		return nil, errors.Validationf("audio duration must be positive, got %v", audioDuration)
	}

	lastEnd := 0.0
	for i, t := range timings {
		if t.EndSeconds > audioDuration+EndToleranceSeconds {
			return nil, errors.Validationf("timing %d: endSeconds %v exceeds audio duration %v beyond tolerance", i, t.EndSeconds, audioDuration)
		}
		if t.EndSeconds > lastEnd {
			lastEnd = t.EndSeconds
		}
	}

	items := make([]Item, len(images))
	for i := range images {
		items[i] = Item{
			Asset:        images[i],
			Timing:       timings[i],
			DisplayIndex: i,
		}
	}

	total := audioDuration
	if lastEnd > total {
		total = lastEnd
	}

	return &RenderPlan{
		Items:                items,
		TotalDurationSeconds: total,
		Resolution:           DefaultResolution(),
		FPS:                  DefaultFPS,
	}, nil
}

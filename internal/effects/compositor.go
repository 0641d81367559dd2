// Package effects derives the overlay layer descriptions (smoke, embers)
// composited above the base image sequence. Layer parameters are a pure
// function of the render plan, so identical plans always produce
// bit-identical layers.
package effects

import (
	"os"
	"path/filepath"

	"emberforge/internal/pkg/errors"
	"emberforge/internal/timeline"
)

// Kind identifies one of the built-in overlay types.
type Kind string

const (
	KindSmoke  Kind = "smoke"
	KindEmbers Kind = "embers"
)

// BlendMode is the compositing operation for a layer.
type BlendMode string

const (
	BlendMultiply BlendMode = "multiply"
	BlendOverlay  BlendMode = "overlay"
)

// Bundled overlay source filenames. Versioned with the deployment image;
// a missing file is a deployment defect, not a per-request condition.
const (
	smokeSource  = "smoke_gray.mp4"
	embersSource = "embers.mp4"
)

// Tuned for visibility over any base content.
const (
	smokeOpacity  = 0.4
	embersOpacity = 1.0
)

// Layer describes one overlay to composite above the base sequence. The
// source loops endlessly so it covers the full plan duration without a
// visible seam.
type Layer struct {
	Kind           Kind
	LoopSourcePath string
	Opacity        float64
	BlendMode      BlendMode
	ScaleToOutput  timeline.Resolution
}

// Library locates the bundled overlay sources.
type Library struct {
	Dir string
}

// DefaultDir is where the deployment image bundles the overlay sources.
const DefaultDir = "/app/overlays"

func NewLibrary(dir string) *Library {
	if dir == "" {
		dir = DefaultDir
	}
	return &Library{Dir: dir}
}

// Verify checks that every bundled overlay source is present. Called at
// worker startup so a broken deployment surfaces before the first job.
func (l *Library) Verify() error {
	for _, name := range []string{smokeSource, embersSource} {
		if _, err := os.Stat(filepath.Join(l.Dir, name)); err != nil {
			return errors.WrapWithCode(err, errors.CodeEffectAssetMissing, "effects.verify",
				"overlay source missing: "+name)
		}
	}
	return nil
}

// Compose derives the overlay layers for a plan. When applyEffects is
// false it returns an empty list, which the orchestrator treats as "base
// timeline only". A missing overlay source fails with
// EFFECT_ASSET_MISSING and is never downgraded to "no effects".
func (l *Library) Compose(plan *timeline.RenderPlan, applyEffects bool) ([]Layer, error) {
	if !applyEffects {
		return []Layer{}, nil
	}

	smoke := filepath.Join(l.Dir, smokeSource)
	embers := filepath.Join(l.Dir, embersSource)

	for _, p := range []string{smoke, embers} {
		if _, err := os.Stat(p); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeEffectAssetMissing, "effects.compose",
				"overlay source missing: "+filepath.Base(p))
		}
	}

	return []Layer{
		{
			Kind:           KindSmoke,
			LoopSourcePath: smoke,
			Opacity:        smokeOpacity,
			BlendMode:      BlendMultiply,
			ScaleToOutput:  plan.Resolution,
		},
		{
			Kind:           KindEmbers,
			LoopSourcePath: embers,
			Opacity:        embersOpacity,
			BlendMode:      BlendOverlay,
			ScaleToOutput:  plan.Resolution,
		},
	}, nil
}

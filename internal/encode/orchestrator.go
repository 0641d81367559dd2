// Package encode drives the external encoding engine through a
// capability-probed hardware path with a deterministic software fallback,
// manages the per-job scratch workspace, and produces one finished video
// artifact.
package encode

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"emberforge/internal/effects"
	"emberforge/internal/media"
	"emberforge/internal/pkg/errors"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/timeline"
)

// State is one node of the per-attempt state machine:
// INIT → PROBE_HARDWARE → {HARDWARE_ENCODE | SOFTWARE_ENCODE} → VERIFY → DONE,
// with FAILED reachable from any non-terminal state.
type State string

const (
	StateInit           State = "INIT"
	StateProbeHardware  State = "PROBE_HARDWARE"
	StateHardwareEncode State = "HARDWARE_ENCODE"
	StateSoftwareEncode State = "SOFTWARE_ENCODE"
	StateVerify         State = "VERIFY"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Settings are the encode-stage tunables.
type Settings struct {
	// EncodeTimeout is the wall-clock ceiling for the encode stage as a
	// whole, hardware and fallback combined.
	EncodeTimeout time.Duration
	// VerifyToleranceSeconds is the allowed difference between the output
	// duration and the plan's nominal duration.
	VerifyToleranceSeconds float64
}

func DefaultSettings() Settings {
	return Settings{
		EncodeTimeout:          60 * time.Minute,
		VerifyToleranceSeconds: 1.0,
	}
}

// Job is one render attempt. Owned exclusively by the orchestrator for
// its lifetime; intermediates live under ScratchDir and are removed on
// every exit path.
type Job struct {
	Plan       *timeline.RenderPlan
	Layers     []effects.Layer
	AudioPath  string
	ScratchDir string
	OutputPath string
}

// RenderResult is produced exactly once per job.
type RenderResult struct {
	OutputPath       string
	EncoderUsed      Encoder
	WallClockSeconds float64
}

// Orchestrator runs the encode state machine. It holds no per-job state;
// the shared hardware probe is the only cross-request state it touches.
type Orchestrator struct {
	runner     Runner
	probe      *HardwareProbe
	probeMedia media.ProbeFunc
	settings   Settings
	log        *logger.Logger
}

func NewOrchestrator(runner Runner, probe *HardwareProbe, probeMedia media.ProbeFunc, settings Settings, log *logger.Logger) *Orchestrator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if probeMedia == nil {
		probeMedia = media.Probe
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Orchestrator{
		runner:     runner,
		probe:      probe,
		probeMedia: probeMedia,
		settings:   settings,
		log:        log.WithComponent("encode"),
	}
}

// Render runs one job through the state machine and verifies the output
// artifact. A hardware failure falls back to the software path exactly
// once; a software failure is terminal. All intermediates are removed
// before Render returns, success or failure.
func (o *Orchestrator) Render(ctx context.Context, job Job) (*RenderResult, error) {
	start := time.Now()
	state := StateInit

	workDir := filepath.Join(job.ScratchDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeEncodeFailed, "encode.init", "failed to create work dir")
	}
	defer os.RemoveAll(workDir)

	ctx, cancel := context.WithTimeout(ctx, o.settings.EncodeTimeout)
	defer cancel()

	concatPath := filepath.Join(workDir, "frames.txt")
	if err := WriteConcatFile(concatPath, job.Plan); err != nil {
		o.transition(&state, StateFailed)
		return nil, errors.WrapWithCode(err, errors.CodeEncodeFailed, "encode.init", "failed to write concat file")
	}

	o.transition(&state, StateProbeHardware)
	choice := EncoderSoftware
	if o.probe.Available(ctx) {
		choice = EncoderHardware
	}

	var used Encoder
	if choice == EncoderHardware {
		o.transition(&state, StateHardwareEncode)
		err := o.encodeOnce(ctx, job, EncoderHardware, concatPath, workDir)
		if err == nil {
			used = EncoderHardware
		} else {
			if abortErr := o.abortReason(ctx); abortErr != nil {
				o.transition(&state, StateFailed)
				return nil, abortErr
			}
			// The device may have become unusable mid-job; discard the
			// cached capability so the next job re-probes.
			o.log.Warn("hardware encode failed, falling back to software", "error", err.Error())
			o.probe.Invalidate()
		}
	}

	if used == "" {
		o.transition(&state, StateSoftwareEncode)
		if err := o.encodeOnce(ctx, job, EncoderSoftware, concatPath, workDir); err != nil {
			o.transition(&state, StateFailed)
			if abortErr := o.abortReason(ctx); abortErr != nil {
				return nil, abortErr
			}
			return nil, err
		}
		used = EncoderSoftware
	}

	o.transition(&state, StateVerify)
	if err := o.verify(ctx, job); err != nil {
		o.transition(&state, StateFailed)
		return nil, err
	}

	o.transition(&state, StateDone)
	return &RenderResult{
		OutputPath:       job.OutputPath,
		EncoderUsed:      used,
		WallClockSeconds: time.Since(start).Seconds(),
	}, nil
}

// encodeOnce performs one full composition on the given path. With
// overlay layers this is two passes (raw sequence, then effects plus
// audio); without, a single pass muxes the audio directly.
func (o *Orchestrator) encodeOnce(ctx context.Context, job Job, enc Encoder, concatPath, workDir string) error {
	if len(job.Layers) == 0 {
		args := BuildBaseArgs(job.Plan, enc, concatPath, job.AudioPath, job.OutputPath)
		res := o.runner.Run(ctx, args)
		if res.Err != nil {
			return encodeError(res, enc, "base render failed")
		}
		return nil
	}

	rawPath := filepath.Join(workDir, "raw.mp4")
	defer os.Remove(rawPath)

	res := o.runner.Run(ctx, BuildBaseArgs(job.Plan, enc, concatPath, "", rawPath))
	if res.Err != nil {
		return encodeError(res, enc, "raw render failed")
	}

	res = o.runner.Run(ctx, BuildEffectsArgs(job.Layers, enc, rawPath, job.AudioPath, job.OutputPath))
	if res.Err != nil {
		return encodeError(res, enc, "effects render failed")
	}
	return nil
}

// verify confirms the artifact exists, is non-empty, and reports a
// duration close to the plan's. A clean encoder exit with a truncated
// file must never be reported as success.
func (o *Orchestrator) verify(ctx context.Context, job Job) error {
	st, err := os.Stat(job.OutputPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeOutputIntegrity, "encode.verify", "output artifact missing")
	}
	if st.Size() == 0 {
		return errors.New(errors.CodeOutputIntegrity, "output artifact is empty").
			WithField("path", job.OutputPath)
	}

	info, err := o.probeMedia(ctx, job.OutputPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeOutputIntegrity, "encode.verify", "failed to probe output artifact")
	}

	drift := math.Abs(info.DurationSeconds - job.Plan.TotalDurationSeconds)
	if drift > o.settings.VerifyToleranceSeconds {
		return errors.Newf(errors.CodeOutputIntegrity,
			"output duration %.2fs differs from planned %.2fs beyond tolerance",
			info.DurationSeconds, job.Plan.TotalDurationSeconds)
	}
	return nil
}

// abortReason maps a context failure to the user-facing error, or nil if
// the context is still live.
func (o *Orchestrator) abortReason(ctx context.Context) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return errors.Timeout("encode")
	case context.Canceled:
		return errors.Cancelled("render")
	default:
		return nil
	}
}

func (o *Orchestrator) transition(state *State, to State) {
	o.log.Debug("encode state transition", "from", string(*state), "to", string(to))
	*state = to
}

// encodeError wraps a failed ffmpeg run, keeping the stderr tail for
// diagnostics.
func encodeError(res Result, enc Encoder, msg string) error {
	tail := res.Stderr
	if len(tail) > 500 {
		tail = tail[len(tail)-500:]
	}
	return errors.WrapWithCode(res.Err, errors.CodeEncodeFailed, "encode."+string(enc), msg).
		WithField("stderr_tail", tail)
}

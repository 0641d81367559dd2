package encode

import (
	"bytes"
	"context"
	"os/exec"
)

// Result holds the outcome of a single ffmpeg invocation. Stderr is
// captured so failures can be classified and logged.
type Result struct {
	Stderr string
	Err    error
}

// Runner abstracts the ffmpeg child process behind a synchronous call so
// the state machine and its tests can substitute a fake encoder without
// spawning real processes.
type Runner interface {
	Run(ctx context.Context, args []string) Result
}

// ExecRunner runs the real ffmpeg binary via exec.CommandContext, so
// context cancellation terminates the in-flight encoder process.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, args []string) Result {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return Result{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

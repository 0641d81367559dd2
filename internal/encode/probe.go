package encode

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// hardwareEncoderName is the ffmpeg encoder the hardware path uses.
const hardwareEncoderName = "h264_nvenc"

const listEncodersTimeout = 10 * time.Second

// ListEncodersFunc returns the ffmpeg encoder listing. Substituted in
// tests to avoid running the real binary.
type ListEncodersFunc func(ctx context.Context) (string, error)

func execListEncoders(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, listEncodersTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").Output()
	return string(out), err
}

// HardwareProbe caches the hardware-encoder capability check for the
// process lifetime. It is the only cross-request shared state in the
// pipeline: written once on first use (or after Invalidate), read-only
// thereafter. Pass it by reference into each orchestrator.
type HardwareProbe struct {
	mu        sync.Mutex
	lister    ListEncodersFunc
	probed    bool
	available bool
}

// NewHardwareProbe builds an uninitialized probe. A nil lister uses the
// real ffmpeg binary.
func NewHardwareProbe(lister ListEncodersFunc) *HardwareProbe {
	if lister == nil {
		lister = execListEncoders
	}
	return &HardwareProbe{lister: lister}
}

// Available reports whether the hardware encoder is usable, probing at
// most once per process lifetime. A probe failure counts as unavailable.
func (p *HardwareProbe) Available(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.probed {
		out, err := p.lister(ctx)
		p.available = err == nil && strings.Contains(out, hardwareEncoderName)
		p.probed = true
	}
	return p.available
}

// Invalidate discards the cached result so the next Available call
// re-probes. Called when the device is suspected to have become unusable.
func (p *HardwareProbe) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = false
	p.available = false
}

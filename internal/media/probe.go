// Package media wraps ffprobe for the container-level metadata the render
// pipeline needs: duration and size of local media files.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info holds the subset of ffprobe format output the pipeline consumes.
type Info struct {
	FormatName      string
	DurationSeconds float64
	SizeBytes       int64
}

// ProbeFunc is the signature used by callers so tests can substitute a fake
// without a real ffprobe binary.
type ProbeFunc func(ctx context.Context, path string) (*Info, error)

// Probe runs a single ffprobe JSON call against path.
func Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into an Info.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	return &Info{
		FormatName:      raw.Format.FormatName,
		DurationSeconds: parseFloat(raw.Format.Duration),
		SizeBytes:       parseInt64(raw.Format.Size),
	}, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format ffprobeFormat `json:"format"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// ffprobe returns numbers as strings.

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

package encode

import (
	"fmt"
	"os"
	"strings"

	"emberforge/internal/timeline"
)

// WriteConcatFile writes an ffmpeg concat-demuxer listing for the plan's
// image sequence. Each image is held for exactly end-start seconds in
// display order; absolute start times never introduce gaps. The last
// image is repeated without a duration because the concat demuxer drops
// the final duration directive otherwise.
func WriteConcatFile(path string, plan *timeline.RenderPlan) error {
	var b strings.Builder
	for _, it := range plan.Items {
		fmt.Fprintf(&b, "file '%s'\n", it.Asset.LocalPath)
		fmt.Fprintf(&b, "duration %g\n", it.Timing.Duration())
	}
	if n := len(plan.Items); n > 0 {
		fmt.Fprintf(&b, "file '%s'\n", plan.Items[n-1].Asset.LocalPath)
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

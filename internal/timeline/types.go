package timeline

// AssetRef describes one fetched input asset on local scratch storage.
// Immutable once populated by the asset resolver.
type AssetRef struct {
	SourceURL   string
	LocalPath   string
	ByteSize    int64
	ContentType string
}

// TimingSpec is the caller-supplied display window for one image, in
// seconds relative to the audio track.
type TimingSpec struct {
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
}

// Duration returns the display duration of the entry.
func (t TimingSpec) Duration() float64 {
	return t.EndSeconds - t.StartSeconds
}

// Resolution is the fixed output frame size. It comes from configuration,
// never from the source images.
type Resolution struct {
	Width  int
	Height int
}

// Item pairs one image asset with its timing at a display position.
type Item struct {
	Asset        AssetRef
	Timing       TimingSpec
	DisplayIndex int
}

// RenderPlan is the validated, immutable description of what to render.
// Built once by Plan and consumed by the effect compositor and the encode
// orchestrator.
type RenderPlan struct {
	Items                []Item
	TotalDurationSeconds float64
	Resolution           Resolution
	FPS                  int
}

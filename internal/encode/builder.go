package encode

import (
	"fmt"
	"strings"

	"emberforge/internal/effects"
	"emberforge/internal/timeline"
)

// Encoder selects the encode path for one attempt.
type Encoder string

const (
	EncoderHardware Encoder = "hardware"
	EncoderSoftware Encoder = "software"
)

// Quality settings shared by both paths. p2 is a fast NVENC preset with
// good quality; CQ/CRF 24 is a reasonable balance for slideshow content.
const (
	nvencPreset     = "p2"
	constantQuality = "24"
	x264Preset      = "fast"
	audioBitrate    = "192k"
)

// encoderArgs returns the codec-specific arguments for the chosen path.
func encoderArgs(enc Encoder) []string {
	if enc == EncoderHardware {
		return []string{"-c:v", hardwareEncoderName, "-preset", nvencPreset, "-cq", constantQuality}
	}
	return []string{"-c:v", "libx264", "-preset", x264Preset, "-crf", constantQuality}
}

// baseVideoFilter scales to the target resolution preserving aspect,
// letterboxes onto a black pad, and locks the sample aspect and frame
// rate. Source images are never trusted to match the output frame.
func baseVideoFilter(res timeline.Resolution, fps int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,fps=%d",
		res.Width, res.Height, res.Width, res.Height, fps,
	)
}

// BuildBaseArgs constructs the ffmpeg argument list for the base image
// sequence. When audioPath is empty the output is a silent intermediate
// (the raw pass of an effects render); otherwise the audio track is muxed
// in and the output is final.
func BuildBaseArgs(plan *timeline.RenderPlan, enc Encoder, concatPath, audioPath, outputPath string) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", concatPath}

	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	args = append(args, "-vf", baseVideoFilter(plan.Resolution, plan.FPS))
	args = append(args, encoderArgs(enc)...)
	args = append(args, "-pix_fmt", "yuv420p")

	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate, "-shortest")
	}

	args = append(args, outputPath)
	return args
}

// BuildEffectsArgs constructs the second-pass argument list: the raw
// render plus every overlay layer as an endlessly looping input, blended
// per layer, with the audio track muxed in.
//
// Input indices: 0 = raw video, 1..len(layers) = overlays, last = audio.
func BuildEffectsArgs(layers []effects.Layer, enc Encoder, rawPath, audioPath, outputPath string) []string {
	args := []string{"-y", "-i", rawPath}

	for _, l := range layers {
		args = append(args, "-stream_loop", "-1", "-i", l.LoopSourcePath)
	}
	args = append(args, "-i", audioPath)

	args = append(args,
		"-filter_complex", effectsFilter(layers),
		"-map", "[out]",
		"-map", fmt.Sprintf("%d:a", len(layers)+1),
	)

	args = append(args, encoderArgs(enc)...)
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-shortest",
		outputPath,
	)
	return args
}

// effectsFilter builds the filter_complex graph from the layer list.
// Each overlay is scaled to fully cover the output frame, then composited
// according to its blend mode: multiply layers are luma-mixed and blended
// with the layer opacity, overlay layers have their black background
// keyed out before being stacked on top.
func effectsFilter(layers []effects.Layer) string {
	var b strings.Builder
	prev := "[0:v]"

	for i, l := range layers {
		in := fmt.Sprintf("[%d:v]", i+1)
		scaled := fmt.Sprintf("[s%d]", i)
		out := fmt.Sprintf("[b%d]", i)
		if i == len(layers)-1 {
			out = "[out]"
		}

		fmt.Fprintf(&b, "%sscale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d%s;",
			in, l.ScaleToOutput.Width, l.ScaleToOutput.Height,
			l.ScaleToOutput.Width, l.ScaleToOutput.Height, scaled)

		switch l.BlendMode {
		case effects.BlendMultiply:
			mixed := fmt.Sprintf("[m%d]", i)
			fmt.Fprintf(&b, "%scolorchannelmixer=.3:.4:.3:0:.3:.4:.3:0:.3:.4:.3:0%s;", scaled, mixed)
			fmt.Fprintf(&b, "%s%sblend=all_mode=multiply:all_opacity=%g%s", prev, mixed, l.Opacity, out)
		case effects.BlendOverlay:
			keyed := fmt.Sprintf("[k%d]", i)
			fmt.Fprintf(&b, "%scolorkey=0x000000:0.2:0.2%s;", scaled, keyed)
			fmt.Fprintf(&b, "%s%soverlay=shortest=1%s", prev, keyed, out)
		}

		if i != len(layers)-1 {
			b.WriteString(";")
		}
		prev = out
	}

	return b.String()
}

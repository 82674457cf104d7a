// Package media wraps the external ffmpeg/ffprobe toolchain. Nothing here
// decodes or encodes media itself; every operation is a subprocess call.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Toolchain is the set of media operations the pipeline delegates.
type Toolchain interface {
	// Duration probes a media file and returns its length in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// Encode normalizes a clip to the canonical resolution/codec/bitrate.
	Encode(ctx context.Context, in, out string) error
	// Trim cuts [0, seconds) from in, re-encoding video and audio.
	Trim(ctx context.Context, in, out string, seconds int) error
	// Concat joins the files listed in a concat manifest, re-encoding.
	Concat(ctx context.Context, manifest, out string) error
	// Mux takes video from video and audio from audio, truncated to the shorter.
	Mux(ctx context.Context, video, audio, out string) error
}

// Profile is the canonical encoding target shared by every clip in a run.
type Profile struct {
	Width        int
	Height       int
	FPS          int
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	Preset       string
	CRF          int
}

// DefaultProfile is the 9:16 Shorts target.
func DefaultProfile() Profile {
	return Profile{
		Width:        720,
		Height:       1280,
		FPS:          30,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Preset:       "fast",
		CRF:          23,
	}
}

// ErrZeroDuration is returned when a probe reports no measurable length.
var ErrZeroDuration = errors.New("media has zero duration")

// WriteConcatList writes an ffmpeg concat-demuxer manifest with absolute paths.
func WriteConcatList(manifest string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs for concat list")
	}
	f, err := os.Create(manifest)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(abs)); err != nil {
			return err
		}
	}
	return f.Sync()
}

// escapeConcatPath escapes single quotes for the concat demuxer's quoting rules.
func escapeConcatPath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\'' {
			out = append(out, []byte(`'\''`)...)
			continue
		}
		out = append(out, p[i])
	}
	return string(out)
}

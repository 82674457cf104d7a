package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxStderrBytes = 8 * 1024

// FFmpeg is the production Toolchain backed by the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	profile     Profile
	timeout     time.Duration
}

// NewFFmpeg resolves ffmpeg/ffprobe on PATH. timeout bounds each invocation.
func NewFFmpeg(logger zerolog.Logger, profile Profile, timeout time.Duration) (*FFmpeg, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &FFmpeg{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		profile:     profile,
		timeout:     timeout,
	}, nil
}

func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	out, err := f.exec(ctx, f.ffprobePath, probeArgs(path))
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(out)
}

func (f *FFmpeg) Encode(ctx context.Context, in, out string) error {
	return f.runFFmpeg(ctx, encodeArgs(f.profile, in, out))
}

func (f *FFmpeg) Trim(ctx context.Context, in, out string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("trim %s: duration must be positive, got %d", in, seconds)
	}
	return f.runFFmpeg(ctx, trimArgs(f.profile, in, out, seconds))
}

func (f *FFmpeg) Concat(ctx context.Context, manifest, out string) error {
	return f.runFFmpeg(ctx, concatArgs(f.profile, manifest, out))
}

func (f *FFmpeg) Mux(ctx context.Context, video, audio, out string) error {
	return f.runFFmpeg(ctx, muxArgs(f.profile, video, audio, out))
}

func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	_, err := f.exec(ctx, f.ffmpegPath, args)
	return err
}

// exec runs a binary and returns stdout. Only a bounded stderr tail is kept.
func (f *FFmpeg) exec(ctx context.Context, bin string, args []string) ([]byte, error) {
	f.logger.Debug().Str("cmd", bin).Strs("args", args).Msg("executing")

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", bin, ctx.Err())
		}
		tail := strings.TrimSpace(stderr.String())
		f.logger.Warn().
			Err(err).
			Dur("elapsed", time.Since(start)).
			Str("stderr_tail", truncate(tail, 512)).
			Msg("media command failed")
		return nil, fmt.Errorf("%w: %s", err, truncate(tail, 512))
	}

	f.logger.Debug().Dur("elapsed", time.Since(start)).Msg("media command completed")
	return stdout.Bytes(), nil
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func parseDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, ErrZeroDuration
	}
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if dur <= 0 {
		return 0, ErrZeroDuration
	}
	return dur, nil
}

// encodeArgs drops the clip's own audio: the final mux takes audio only from
// the narration, and uniform audio-less streams keep the concat consistent.
func encodeArgs(p Profile, in, out string) []string {
	return []string{
		"-y", "-hide_banner",
		"-i", in,
		"-vf", scaleFilter(p),
		"-r", strconv.Itoa(p.FPS),
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	}
}

func trimArgs(p Profile, in, out string, seconds int) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", "0",
		"-i", in,
		"-t", strconv.Itoa(seconds),
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		out,
	}
}

func concatArgs(p Profile, manifest, out string) []string {
	return []string{
		"-y", "-hide_banner",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	}
}

func muxArgs(p Profile, video, audio, out string) []string {
	return []string{
		"-y", "-hide_banner",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		out,
	}
}

func scaleFilter(p Profile) string {
	// fit inside the frame, pad the rest, square pixels
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		p.Width, p.Height, p.Width, p.Height,
	)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}

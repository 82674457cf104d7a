package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/media"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	// ErrUndefinedRepeatCount is returned when the concatenated clips measure
	// zero seconds, so no number of repeats can cover the narration.
	ErrUndefinedRepeatCount = errors.New("repeat count undefined: video duration is zero")
	// ErrNoClips means every scene was skipped before assembly.
	ErrNoClips = errors.New("no clips to assemble")
)

// Result describes the muxed output
type Result struct {
	OutputPath   string  `json:"output_path"`
	Clips        int     `json:"clips"`
	VideoSeconds float64 `json:"video_seconds"` // one pass over the encoded clips
	AudioSeconds float64 `json:"audio_seconds"`
	RepeatCount  int     `json:"repeat_count"`
	Seconds      float64 `json:"seconds"` // min(repeated video, audio)
}

// Assembler normalizes the trimmed clips, loops them to cover the narration
// and muxes the narration on top.
type Assembler struct {
	cfg     *config.Config
	tools   media.Toolchain
	workDir string
	logger  zerolog.Logger
}

// New creates a new Assembler. Intermediates go in a temp dir under workDir.
func New(cfg *config.Config, tools media.Toolchain, workDir string) *Assembler {
	return &Assembler{
		cfg:     cfg,
		tools:   tools,
		workDir: workDir,
		logger:  logging.WithComponent("render"),
	}
}

// Assemble builds outputPath from clips (in order) and the narration at audioPath.
// Per-clip encodes, the playlist manifest and the pre-mux concat are removed
// whether or not assembly succeeds.
func (a *Assembler) Assemble(ctx context.Context, clips []types.Clip, audioPath, outputPath string) (*Result, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	start := time.Now()

	tmp, err := os.MkdirTemp(a.workDir, "assemble-")
	if err != nil {
		return nil, fmt.Errorf("create assembly dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			a.logger.Warn().Err(err).Str("dir", tmp).Msg("cleanup failed")
		}
	}()

	a.logger.Info().Int("clips", len(clips)).Msg("encoding clips to canonical profile")
	encoded := make([]string, len(clips))
	durations := make([]float64, len(clips))
	for i, c := range clips {
		encoded[i] = filepath.Join(tmp, fmt.Sprintf("encoded_%03d.mp4", i))
		if err := a.tools.Encode(ctx, c.Path, encoded[i]); err != nil {
			return nil, fmt.Errorf("encode clip %q: %w", c.Keyword, err)
		}
		d, err := a.tools.Duration(ctx, encoded[i])
		if err != nil && !errors.Is(err, media.ErrZeroDuration) {
			return nil, fmt.Errorf("probe clip %q: %w", c.Keyword, err)
		}
		durations[i] = d
	}
	videoSec := lo.Sum(durations)

	audioSec, err := a.tools.Duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe narration: %w", err)
	}

	repeats, err := RepeatCount(videoSec, audioSec)
	if err != nil {
		return nil, err
	}
	a.logger.Info().
		Float64("video_sec", videoSec).
		Float64("audio_sec", audioSec).
		Int("repeats", repeats).
		Msg("looping clips to cover narration")

	manifest := filepath.Join(tmp, "playlist.txt")
	if err := media.WriteConcatList(manifest, BuildPlaylist(encoded, repeats)); err != nil {
		return nil, fmt.Errorf("write playlist: %w", err)
	}
	concat := filepath.Join(tmp, "concat.mp4")
	if err := a.tools.Concat(ctx, manifest, concat); err != nil {
		return nil, fmt.Errorf("concat clips: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := a.tools.Mux(ctx, concat, audioPath, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("mux narration: %w", err)
	}

	res := &Result{
		OutputPath:   outputPath,
		Clips:        len(clips),
		VideoSeconds: videoSec,
		AudioSeconds: audioSec,
		RepeatCount:  repeats,
		Seconds:      math.Min(videoSec*float64(repeats), audioSec),
	}
	a.logger.Info().
		Str("file", outputPath).
		Float64("seconds", res.Seconds).
		Dur("took", time.Since(start)).
		Msg("✅ final video ready")
	return res, nil
}

// RepeatCount is how many passes over the clip sequence cover the narration:
// ceil(audio / video), at least 1.
func RepeatCount(videoSec, audioSec float64) (int, error) {
	if videoSec <= 0 {
		return 0, ErrUndefinedRepeatCount
	}
	n := int(math.Ceil(audioSec / videoSec))
	return max(n, 1), nil
}

// BuildPlaylist repeats the clip sequence n times, preserving order.
func BuildPlaylist(paths []string, n int) []string {
	return lo.Flatten(lo.Times(n, func(int) []string { return paths }))
}

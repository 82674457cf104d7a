package media

import (
	"context"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// makeFixture renders a short synthetic clip with lavfi sources.
func makeFixture(t *testing.T, out string, seconds int, withVideo bool) {
	t.Helper()
	var args []string
	if withVideo {
		args = []string{"-y", "-f", "lavfi", "-i", "testsrc=size=320x240:rate=30",
			"-f", "lavfi", "-i", "sine=frequency=440",
			"-t", strconv.Itoa(seconds), "-c:v", "libx264", "-preset", "ultrafast", "-c:a", "aac", out}
	} else {
		args = []string{"-y", "-f", "lavfi", "-i", "sine=frequency=440",
			"-t", strconv.Itoa(seconds), "-c:a", "aac", out}
	}
	if b, err := exec.Command("ffmpeg", args...).CombinedOutput(); err != nil {
		t.Skipf("cannot render fixture (ffmpeg build lacks libx264/aac?): %v\n%s", err, b)
	}
}

func near(got, want float64) bool {
	return math.Abs(got-want) < 0.5
}

func TestFFmpeg_TrimEncodeMux(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	narration := filepath.Join(dir, "narration.m4a")
	makeFixture(t, src, 4, true)
	makeFixture(t, narration, 2, false)

	profile := DefaultProfile()
	profile.Preset = "ultrafast"
	ff, err := NewFFmpeg(zerolog.Nop(), profile, time.Minute)
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}
	ctx := context.Background()

	trimmed := filepath.Join(dir, "trimmed.mp4")
	if err := ff.Trim(ctx, src, trimmed, 3); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if d, err := ff.Duration(ctx, trimmed); err != nil || !near(d, 3) {
		t.Fatalf("trimmed duration = %v, %v; want ~3", d, err)
	}

	encoded := filepath.Join(dir, "encoded.mp4")
	if err := ff.Encode(ctx, trimmed, encoded); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	final := filepath.Join(dir, "final.mp4")
	if err := ff.Mux(ctx, encoded, narration, final); err != nil {
		t.Fatalf("Mux: %v", err)
	}
	d, err := ff.Duration(ctx, final)
	if err != nil {
		t.Fatalf("Duration(final): %v", err)
	}
	if !near(d, 2) {
		t.Errorf("final duration = %.2f, want ~2 (shortest stream)", d)
	}
}

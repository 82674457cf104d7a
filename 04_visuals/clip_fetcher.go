package visuals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"trend-shorts/config"
	"trend-shorts/internal/retry"
	"trend-shorts/logging"
	"trend-shorts/media"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads selected footage and trims each clip to its scene length
type Fetcher struct {
	cfg        *config.Config
	httpClient *http.Client
	tools      media.Toolchain
	logger     zerolog.Logger
}

// NewFetcher creates a new Fetcher
func NewFetcher(cfg *config.Config, tools media.Toolchain) *Fetcher {
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Footage.DownloadSec) * time.Second},
		tools:      tools,
		logger:     logging.WithComponent("clips"),
	}
}

// Fetch downloads and trims every found selection. Scenes run concurrently
// up to footage.concurrency; each scene fails on its own. Raw downloads go to
// workDir and are removed once trimmed; trimmed clips land in clipsDir.
// The result is aligned with selections.
func (f *Fetcher) Fetch(ctx context.Context, selections []types.Selection, plan types.ScenePlan, clipsDir, workDir string) []types.ClipResult {
	results := make([]types.ClipResult, len(selections))
	if err := os.MkdirAll(clipsDir, 0755); err != nil {
		for i, sel := range selections {
			results[i] = types.ClipResult{Keyword: sel.Keyword, Err: fmt.Errorf("create clips dir: %w", err)}
		}
		return results
	}

	g := new(errgroup.Group)
	g.SetLimit(max(f.cfg.Footage.Concurrency, 1))

	for i, sel := range selections {
		seconds, planned := plan.Seconds(sel.Keyword)
		if !sel.Found || !planned {
			f.logger.Info().Str("keyword", sel.Keyword).Msg("no footage, scene skipped")
			results[i] = types.ClipResult{Keyword: sel.Keyword, Skipped: true, Err: sel.Err}
			continue
		}
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, i, sel, seconds, clipsDir, workDir)
			return nil
		})
	}
	_ = g.Wait()

	ok := len(Clips(results))
	f.logger.Info().Msgf("✅ %d of %d scenes have a trimmed clip", ok, len(selections))
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, index int, sel types.Selection, seconds int, clipsDir, workDir string) types.ClipResult {
	res := types.ClipResult{Keyword: sel.Keyword}
	name := fmt.Sprintf("%02d_%s", index+1, slug(sel.Keyword))
	raw := filepath.Join(workDir, name+"_raw.mp4")
	trimmed := filepath.Join(clipsDir, name+".mp4")
	defer os.Remove(raw)

	backoff := time.Duration(f.cfg.Footage.RetryBackoffMs) * time.Millisecond
	err := retry.Do(ctx, f.cfg.Footage.RetryAttempts, backoff,
		func(attempt int, err error) {
			f.logger.Warn().Err(err).Str("keyword", sel.Keyword).Int("attempt", attempt).Msg("download failed, retrying")
		},
		func(ctx context.Context) error {
			return f.download(ctx, sel.Candidate.URL, raw)
		})
	if err != nil {
		f.logger.Error().Err(err).Str("keyword", sel.Keyword).Msg("download failed")
		res.Err = fmt.Errorf("download %q: %w", sel.Keyword, err)
		return res
	}

	clip := types.Clip{Keyword: sel.Keyword, Path: raw, State: types.ClipRaw, Seconds: seconds}
	f.logger.Debug().Str("keyword", clip.Keyword).Str("state", string(clip.State)).Str("file", clip.Path).Msg("downloaded")

	if err := f.tools.Trim(ctx, clip.Path, trimmed, clip.Seconds); err != nil {
		os.Remove(trimmed)
		f.logger.Error().Err(err).Str("keyword", sel.Keyword).Msg("trim failed")
		res.Err = fmt.Errorf("trim %q: %w", sel.Keyword, err)
		return res
	}

	clip.MarkTrimmed(trimmed)
	f.logger.Info().Str("keyword", clip.Keyword).Int("seconds", clip.Seconds).Str("file", clip.Path).Msg("clip ready")
	res.Clip = &clip
	return res
}

// download streams url into out, removing the file if anything goes wrong.
func (f *Fetcher) download(ctx context.Context, url, out string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}

	file, err := os.Create(out)
	if err != nil {
		return retry.Permanent(err)
	}
	defer func() {
		if err != nil {
			os.Remove(out)
		}
	}()

	n, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("empty download")
	}
	return nil
}

// Clips returns the trimmed clips that survived, in scene order.
func Clips(results []types.ClipResult) []types.Clip {
	return lo.FilterMap(results, func(r types.ClipResult, _ int) (types.Clip, bool) {
		if r.Clip == nil {
			return types.Clip{}, false
		}
		return *r.Clip, true
	})
}

// slug turns a keyword into a filename-safe token.
func slug(keyword string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(keyword))
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	if s == "" {
		return "scene"
	}
	return s
}

package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trend-shorts/config"
	"trend-shorts/internal/retry"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
)

// pexelsResponse is the subset of the Pexels video search payload we read.
type pexelsResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int          `json:"id"`
	VideoFiles []pexelsFile `json:"video_files"`
}

type pexelsFile struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Link   string `json:"link"`
}

// Resolver finds one portrait stock clip per scene keyword via Pexels
type Resolver struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewResolver creates a new Resolver
func NewResolver(cfg *config.Config) (*Resolver, error) {
	if err := cfg.Credentials.Require(config.StageFootage); err != nil {
		return nil, err
	}
	return &Resolver{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Footage.TimeoutSec) * time.Second},
		logger:     logging.WithComponent("footage"),
	}, nil
}

// Resolve searches every keyword in plan order. The result is aligned with
// the plan; a failed search is recorded on its Selection and never stops the rest.
func (r *Resolver) Resolve(ctx context.Context, plan types.ScenePlan) []types.Selection {
	out := make([]types.Selection, len(plan))
	for i, scene := range plan {
		out[i] = r.resolveOne(ctx, scene.Keyword)
	}
	found := 0
	for _, s := range out {
		if s.Found {
			found++
		}
	}
	r.logger.Info().Int("found", found).Int("scenes", len(plan)).Msg("footage resolved")
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, keyword string) types.Selection {
	sel := types.Selection{Keyword: keyword}

	videos, err := r.search(ctx, keyword)
	if err != nil {
		r.logger.Warn().Err(err).Str("keyword", keyword).Msg("search failed")
		sel.Err = err
		return sel
	}

	candidate, ok := SelectPortrait(videos)
	if !ok {
		r.logger.Warn().Str("keyword", keyword).Int("results", len(videos)).Msg("no portrait footage")
		return sel
	}
	sel.Found = true
	sel.Candidate = candidate
	r.logger.Info().Str("keyword", keyword).Int("w", candidate.Width).Int("h", candidate.Height).Msg("selected footage")
	return sel
}

// search returns the variants of each result, results in API order.
func (r *Resolver) search(ctx context.Context, keyword string) ([][]types.FootageCandidate, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", strconv.Itoa(r.cfg.Footage.PerPage))
	endpoint := r.cfg.Footage.SearchURL + "?" + q.Encode()

	var videos [][]types.FootageCandidate
	backoff := time.Duration(r.cfg.Footage.RetryBackoffMs) * time.Millisecond
	err := retry.Do(ctx, r.cfg.Footage.RetryAttempts, backoff,
		func(attempt int, err error) {
			r.logger.Debug().Err(err).Str("keyword", keyword).Int("attempt", attempt).Msg("retrying search")
		},
		func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Permanent(err)
			}
			req.Header.Set("Authorization", r.cfg.Credentials.PexelsKey)

			resp, err := r.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
				err := fmt.Errorf("pexels HTTP %d: %s", resp.StatusCode, msg)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Permanent(err)
				}
				return err
			}

			var body pexelsResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return retry.Permanent(fmt.Errorf("decode pexels response: %w", err))
			}
			videos = body.candidates()
			return nil
		})
	return videos, err
}

func (p pexelsResponse) candidates() [][]types.FootageCandidate {
	out := make([][]types.FootageCandidate, 0, len(p.Videos))
	for _, v := range p.Videos {
		files := make([]types.FootageCandidate, 0, len(v.VideoFiles))
		for _, f := range v.VideoFiles {
			files = append(files, types.FootageCandidate{URL: f.Link, Width: f.Width, Height: f.Height})
		}
		out = append(out, files)
	}
	return out
}

// SelectPortrait returns the first variant (results in order, variants in
// order) whose height exceeds its width.
func SelectPortrait(results [][]types.FootageCandidate) (types.FootageCandidate, bool) {
	for _, variants := range results {
		for _, c := range variants {
			if c.Portrait() && c.URL != "" {
				return c, true
			}
		}
	}
	return types.FootageCandidate{}, false
}

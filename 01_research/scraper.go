package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trend-shorts/config"
	"trend-shorts/internal/retry"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// ErrNoTopics is returned when the feed answered but had no usable titles.
var ErrNoTopics = errors.New("feed returned no topics")

// hotLister is the slice of the reddit client the scraper needs.
type hotLister interface {
	HotPosts(ctx context.Context, subreddit string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error)
}

// Scraper pulls trending titles from a subreddit's hot list
type Scraper struct {
	cfg    *config.Config
	posts  hotLister
	logger zerolog.Logger
}

// New creates a Scraper backed by a read-only (no credentials) reddit client.
func New(cfg *config.Config) (*Scraper, error) {
	ua := cfg.Trends.UserAgent
	if cfg.Credentials.RedditUserAgent != "" {
		ua = cfg.Credentials.RedditUserAgent
	}
	client, err := reddit.NewReadonlyClient(
		reddit.WithUserAgent(ua),
		reddit.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Trends.TimeoutSec) * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return newWithLister(cfg, client.Subreddit), nil
}

func newWithLister(cfg *config.Config, posts hotLister) *Scraper {
	return &Scraper{
		cfg:    cfg,
		posts:  posts,
		logger: logging.WithComponent("research"),
	}
}

// Run fetches the hot list for niche and returns its titles as topics.
func (s *Scraper) Run(ctx context.Context, niche string) ([]types.Topic, error) {
	s.logger.Info().Str("subreddit", niche).Int("limit", s.cfg.Trends.Limit).Msg("fetching hot posts")

	var posts []*reddit.Post
	backoff := time.Duration(s.cfg.Trends.RetryBackoffMs) * time.Millisecond
	err := retry.Do(ctx, s.cfg.Trends.RetryAttempts, backoff,
		func(attempt int, err error) {
			s.logger.Warn().Err(err).Int("attempt", attempt).Msg("hot list fetch failed, retrying")
		},
		func(ctx context.Context) error {
			got, resp, err := s.posts.HotPosts(ctx, niche, &reddit.ListOptions{Limit: s.cfg.Trends.Limit})
			if err != nil {
				if isClientError(resp) {
					return retry.Permanent(err)
				}
				return err
			}
			posts = got
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("r/%s hot: %w", niche, err)
	}

	topics := topicsFromPosts(niche, posts)
	if len(topics) == 0 {
		return nil, fmt.Errorf("r/%s: %w", niche, ErrNoTopics)
	}
	for _, t := range topics {
		s.logger.Info().Str("topic", t.Title).Int("score", t.Score).Msg("trend")
	}
	return topics, nil
}

func topicsFromPosts(niche string, posts []*reddit.Post) []types.Topic {
	var topics []types.Topic
	for _, p := range posts {
		if p == nil {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		topics = append(topics, types.Topic{
			ID:     p.ID,
			Title:  title,
			Source: "r/" + niche,
			Score:  p.Score,
		})
	}
	return topics
}

// isClientError reports a 4xx other than 429; those are not worth retrying.
func isClientError(resp *reddit.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	code := resp.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

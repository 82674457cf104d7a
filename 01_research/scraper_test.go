package research

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"trend-shorts/config"

	"github.com/vartanbeno/go-reddit/v2/reddit"
)

type fakeLister struct {
	calls   int
	fail    int // fail this many calls before succeeding
	status  int
	posts   []*reddit.Post
	gotSub  string
	gotOpts *reddit.ListOptions
}

func (f *fakeLister) HotPosts(ctx context.Context, subreddit string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error) {
	f.calls++
	f.gotSub = subreddit
	f.gotOpts = opts
	if f.calls <= f.fail {
		resp := &reddit.Response{Response: &http.Response{StatusCode: f.status}}
		return nil, resp, errors.New("upstream error")
	}
	return f.posts, &reddit.Response{Response: &http.Response{StatusCode: 200}}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Trends.RetryBackoffMs = 1
	return cfg
}

func TestRun_ReturnsTitlesInOrder(t *testing.T) {
	lister := &fakeLister{posts: []*reddit.Post{
		{ID: "a1", Title: "Steam hits a new concurrent user peak", Score: 900},
		{ID: "a2", Title: "   "},
		{ID: "a3", Title: " GTA controversy  ", Score: 450},
	}}
	s := newWithLister(testConfig(), lister)

	topics, err := s.Run(context.Background(), "gaming")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lister.gotSub != "gaming" {
		t.Errorf("subreddit = %q, want gaming", lister.gotSub)
	}
	if lister.gotOpts == nil || lister.gotOpts.Limit != 2 {
		t.Errorf("limit = %+v, want 2", lister.gotOpts)
	}
	if len(topics) != 2 {
		t.Fatalf("got %d topics, want 2 (blank title dropped)", len(topics))
	}
	if topics[0].Title != "Steam hits a new concurrent user peak" || topics[1].Title != "GTA controversy" {
		t.Errorf("topics = %+v", topics)
	}
	if topics[1].Source != "r/gaming" {
		t.Errorf("source = %q", topics[1].Source)
	}
}

func TestRun_RetriesServerErrors(t *testing.T) {
	lister := &fakeLister{fail: 2, status: 503, posts: []*reddit.Post{{Title: "ok"}}}
	s := newWithLister(testConfig(), lister)

	if _, err := s.Run(context.Background(), "gaming"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lister.calls != 3 {
		t.Errorf("calls = %d, want 3", lister.calls)
	}
}

func TestRun_ClientErrorIsNotRetried(t *testing.T) {
	lister := &fakeLister{fail: 5, status: 403}
	s := newWithLister(testConfig(), lister)

	if _, err := s.Run(context.Background(), "private"); err == nil {
		t.Fatal("expected error")
	}
	if lister.calls != 1 {
		t.Errorf("calls = %d, want 1", lister.calls)
	}
}

func TestRun_EmptyFeed(t *testing.T) {
	s := newWithLister(testConfig(), &fakeLister{})
	_, err := s.Run(context.Background(), "gaming")
	if !errors.Is(err, ErrNoTopics) {
		t.Fatalf("err = %v, want ErrNoTopics", err)
	}
}

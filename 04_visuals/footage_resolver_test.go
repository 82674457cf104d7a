package visuals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"trend-shorts/config"
	"trend-shorts/types"
)

func TestSelectPortrait(t *testing.T) {
	tests := []struct {
		name    string
		results [][]types.FootageCandidate
		wantURL string
		wantOK  bool
	}{
		{
			name: "first portrait variant wins",
			results: [][]types.FootageCandidate{{
				{URL: "landscape", Width: 1920, Height: 1080},
				{URL: "portrait", Width: 1080, Height: 1920},
			}},
			wantURL: "portrait",
			wantOK:  true,
		},
		{
			name: "later result scanned when first has none",
			results: [][]types.FootageCandidate{
				{{URL: "a", Width: 1280, Height: 720}},
				{{URL: "b", Width: 720, Height: 1280}, {URL: "c", Width: 1080, Height: 1920}},
			},
			wantURL: "b",
			wantOK:  true,
		},
		{
			name:    "landscape only",
			results: [][]types.FootageCandidate{{{URL: "a", Width: 1920, Height: 1080}}},
		},
		{
			name:    "square is not portrait",
			results: [][]types.FootageCandidate{{{URL: "sq", Width: 1080, Height: 1080}}},
		},
		{
			name: "no results",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectPortrait(tt.results)
			if ok != tt.wantOK || got.URL != tt.wantURL {
				t.Errorf("SelectPortrait = (%+v, %v), want (%q, %v)", got, ok, tt.wantURL, tt.wantOK)
			}
		})
	}
}

const pexelsBody = `{"videos":[
  {"id":1,"video_files":[{"width":1920,"height":1080,"link":"https://cdn/land.mp4"},{"width":1080,"height":1920,"link":"https://cdn/port.mp4"}]},
  {"id":2,"video_files":[{"width":720,"height":1280,"link":"https://cdn/other.mp4"}]}
]}`

func testResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Footage.SearchURL = srv.URL
	cfg.Footage.RetryBackoffMs = 1
	cfg.Credentials.PexelsKey = "px-key"
	r, err := NewResolver(cfg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolve_AlignedWithPlan(t *testing.T) {
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "px-key" {
			t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
		}
		if req.URL.Query().Get("per_page") != "5" {
			t.Errorf("per_page = %q", req.URL.Query().Get("per_page"))
		}
		switch req.URL.Query().Get("query") {
		case "broken":
			http.Error(w, "bad", http.StatusBadRequest)
		case "flat":
			_, _ = w.Write([]byte(`{"videos":[{"id":3,"video_files":[{"width":1920,"height":1080,"link":"x"}]}]}`))
		default:
			_, _ = w.Write([]byte(pexelsBody))
		}
	})

	plan := types.ScenePlan{{Keyword: "city", Seconds: 5}, {Keyword: "broken", Seconds: 3}, {Keyword: "flat", Seconds: 4}}
	got := r.Resolve(context.Background(), plan)

	if len(got) != 3 {
		t.Fatalf("got %d selections, want 3", len(got))
	}
	if !got[0].Found || got[0].Candidate.URL != "https://cdn/port.mp4" {
		t.Errorf("city = %+v", got[0])
	}
	if got[1].Found || got[1].Err == nil {
		t.Errorf("broken = %+v, want recorded error", got[1])
	}
	if got[2].Found || got[2].Err != nil {
		t.Errorf("flat = %+v, want no selection without error", got[2])
	}
	for i, s := range got {
		if s.Keyword != plan[i].Keyword {
			t.Errorf("selection %d keyword = %q, want %q", i, s.Keyword, plan[i].Keyword)
		}
	}
}

func TestResolve_RetriesServerError(t *testing.T) {
	var calls int32
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(pexelsBody))
	})

	got := r.Resolve(context.Background(), types.ScenePlan{{Keyword: "city", Seconds: 5}})
	if !got[0].Found {
		t.Fatalf("selection = %+v, want found after retries", got[0])
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestResolve_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	r := testResolver(t, func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	got := r.Resolve(context.Background(), types.ScenePlan{{Keyword: "city", Seconds: 5}})
	if got[0].Err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

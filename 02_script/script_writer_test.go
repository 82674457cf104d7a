package script

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trend-shorts/config"
	"trend-shorts/types"

	openai "github.com/sashabaranov/go-openai"
)

// completionServer answers /chat/completions with status and body, counting calls.
func completionServer(t *testing.T, status int, body string, calls *int, gotPrompt *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if gotPrompt != nil {
			var req openai.ChatCompletionRequest
			raw, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(raw, &req); err == nil && len(req.Messages) > 0 {
				*gotPrompt = req.Messages[0].Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	})
	return string(b)
}

func testWriter(srvURL string) *Writer {
	cfg := config.Default()
	cfg.LLM.BaseURL = srvURL
	clientCfg := openai.DefaultConfig("test-key")
	clientCfg.BaseURL = srvURL
	return newWithClient(cfg, openai.NewClientWithConfig(clientCfg))
}

var gamingTopics = []types.Topic{
	{Title: "Steam breaks its concurrent user record"},
	{Title: "New GTA trailer leaks early"},
}

func TestGenerate_ReturnsTrimmedText(t *testing.T) {
	var calls int
	var prompt string
	srv := completionServer(t, 200, completionJSON("  So Steam just broke its record...  \n"), &calls, &prompt)

	s, err := testWriter(srv.URL).Generate(context.Background(), gamingTopics, "gaming")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Text != "So Steam just broke its record..." {
		t.Errorf("Text = %q", s.Text)
	}
	if s.Niche != "gaming" || len(s.Topics) != 2 {
		t.Errorf("script = %+v", s)
	}
	if !strings.Contains(prompt, "gaming news") || !strings.Contains(prompt, "New GTA trailer leaks early") {
		t.Errorf("prompt missing niche or topic: %q", prompt)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGenerate_UpstreamErrorIsNotRetried(t *testing.T) {
	var calls int
	srv := completionServer(t, 500, `{"error":{"message":"boom","type":"server_error"}}`, &calls, nil)

	_, err := testWriter(srv.URL).Generate(context.Background(), gamingTopics, "gaming")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1", calls)
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank content", completionJSON("   ")},
		{"no choices", `{"id":"x","object":"chat.completion","choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			srv := completionServer(t, 200, tt.body, &calls, nil)
			_, err := testWriter(srv.URL).Generate(context.Background(), gamingTopics, "gaming")
			if !errors.Is(err, ErrEmptyCompletion) {
				t.Fatalf("err = %v, want ErrEmptyCompletion", err)
			}
			if errors.Is(err, ErrUpstream) {
				t.Error("empty completion must not be reported as upstream failure")
			}
		})
	}
}

func TestGenerate_NoTopics(t *testing.T) {
	w := testWriter("http://127.0.0.1:0")
	if _, err := w.Generate(context.Background(), nil, "gaming"); err == nil {
		t.Fatal("expected error for empty topics")
	}
}

func TestNew_RequiresKey(t *testing.T) {
	cfg := config.Default()
	if _, err := New(cfg); err == nil {
		t.Fatal("expected missing OPENROUTER_API_KEY error")
	}
}

func TestPlan_ParsesReply(t *testing.T) {
	var calls int
	var prompt string
	srv := completionServer(t, 200, completionJSON("intro, 5 seconds, climax, 8 seconds, outro"), &calls, &prompt)

	plan, issues, err := testWriter(srv.URL).Plan(context.Background(), &types.Script{Text: "Steam broke its record."})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.String() != "intro: 5s, climax: 8s" {
		t.Errorf("plan = %q", plan.String())
	}
	if len(issues) != 1 {
		t.Errorf("issues = %v, want the dangling keyword", issues)
	}
	if !strings.Contains(prompt, "Steam broke its record.") {
		t.Errorf("prompt does not carry the script: %q", prompt)
	}
}

func TestPlan_NoUsableScenes(t *testing.T) {
	var calls int
	srv := completionServer(t, 200, completionJSON("intro, soon, outro, later"), &calls, nil)

	_, issues, err := testWriter(srv.URL).Plan(context.Background(), &types.Script{Text: "x"})
	if !errors.Is(err, ErrNoScenes) {
		t.Fatalf("err = %v, want ErrNoScenes", err)
	}
	if len(issues) != 2 {
		t.Errorf("issues = %v", issues)
	}
}

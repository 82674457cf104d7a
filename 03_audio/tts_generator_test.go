package audio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"trend-shorts/config"
	"trend-shorts/types"
)

func testGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Voice.BaseURL = srv.URL
	cfg.Credentials.ElevenLabsKey = "el-key"
	cfg.Credentials.VoiceID = "voice123"
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

var script = &types.Script{Text: "Steam just broke its all time record."}

func TestGenerate_WritesStream(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key header")
		}
		var req ttsRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if req.Text != script.Text || req.ModelID != "eleven_monolingual_v1" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		for i := 0; i < 3; i++ {
			_, _ = w.Write([]byte("ID3chunk"))
			w.(http.Flusher).Flush()
		}
	})

	out := filepath.Join(t.TempDir(), "audio", "script.mp3")
	if err := g.Generate(context.Background(), script, out); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b) != "ID3chunkID3chunkID3chunk" {
		t.Errorf("content = %q", b)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	})

	out := filepath.Join(t.TempDir(), "script.mp3")
	err := g.Generate(context.Background(), script, out)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no file should be left behind on failure")
	}
}

func TestGenerate_EmptyBody(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	out := filepath.Join(t.TempDir(), "script.mp3")
	err := g.Generate(context.Background(), script, out)
	if !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("empty file should be removed")
	}
}

func TestNew_RequiresVoiceCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.ElevenLabsKey = "el-key"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected VOICE_ID to be required")
	}
}

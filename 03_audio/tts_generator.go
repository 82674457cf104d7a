package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
)

var (
	// ErrUpstream covers transport failures and non-2xx answers from the TTS API.
	ErrUpstream = errors.New("tts upstream error")
	// ErrEmptyAudio means the API answered 2xx with a zero-byte body.
	ErrEmptyAudio = errors.New("tts returned no audio")
)

// Generator turns a script into a single narration file via ElevenLabs
type Generator struct {
	cfg    *config.Config
	client *http.Client
	logger zerolog.Logger
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// New creates a new Generator
func New(cfg *config.Config) (*Generator, error) {
	if err := cfg.Credentials.Require(config.StageVoice); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Voice.TimeoutSec) * time.Second},
		logger: logging.WithComponent("audio"),
	}, nil
}

// Generate synthesizes script.Text and streams the audio into outPath.
// A partially written file is removed on failure.
func (g *Generator) Generate(ctx context.Context, script *types.Script, outPath string) (err error) {
	text := strings.TrimSpace(script.Text)
	if text == "" {
		return fmt.Errorf("script text is empty")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	g.logger.Info().Str("voice", g.cfg.Credentials.VoiceID).Str("model", g.cfg.Voice.ModelID).Msg("generating voiceover")

	body, err := json.Marshal(ttsRequest{Text: text, ModelID: g.cfg.Voice.ModelID})
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(g.cfg.Voice.BaseURL, "/") + "/text-to-speech/" + url.PathEscape(g.cfg.Credentials.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", g.cfg.Credentials.ElevenLabsKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer func() {
		if err != nil {
			os.Remove(outPath)
		}
	}()

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: stream audio: %v", ErrUpstream, err)
	}
	if n == 0 {
		return ErrEmptyAudio
	}

	g.logger.Info().Str("file", outPath).Int64("bytes", n).Msg("✅ voiceover saved")
	return nil
}

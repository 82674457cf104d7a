package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrUpstream wraps transport failures and non-2xx answers from the LLM API.
	ErrUpstream = errors.New("llm upstream error")
	// ErrEmptyCompletion means the API answered 2xx but with no usable text.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
)

// completer is the part of the OpenAI-compatible client the stage uses.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Writer generates narration scripts and scene plans through an
// OpenAI-compatible chat completions API (OpenRouter by default).
type Writer struct {
	cfg    *config.Config
	client completer
	logger zerolog.Logger
}

// New creates a new script Writer
func New(cfg *config.Config) (*Writer, error) {
	if err := cfg.Credentials.Require(config.StageScript); err != nil {
		return nil, err
	}
	clientCfg := openai.DefaultConfig(cfg.Credentials.OpenRouterKey)
	clientCfg.BaseURL = cfg.LLM.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second}
	return newWithClient(cfg, openai.NewClientWithConfig(clientCfg)), nil
}

func newWithClient(cfg *config.Config, client completer) *Writer {
	return &Writer{
		cfg:    cfg,
		client: client,
		logger: logging.WithComponent("script"),
	}
}

// Generate writes a casual voiceover (under a minute spoken) about topics.
// It is called exactly once: a repeat call is billed and yields a different script.
func (w *Writer) Generate(ctx context.Context, topics []types.Topic, niche string) (*types.Script, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics to write about")
	}
	titles := make([]string, len(topics))
	for i, t := range topics {
		titles[i] = t.Title
	}

	w.logger.Info().Str("model", w.cfg.LLM.Model).Int("topics", len(titles)).Msg("generating script")

	text, err := w.complete(ctx, buildScriptPrompt(titles, niche))
	if err != nil {
		return nil, err
	}

	w.logger.Info().Int("words", len(strings.Fields(text))).Msg("✅ script ready")
	return &types.Script{
		Niche:  niche,
		Topics: titles,
		Text:   text,
		Model:  w.cfg.LLM.Model,
	}, nil
}

// complete sends one user message and returns the trimmed completion text.
func (w *Writer) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: w.cfg.LLM.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(w.cfg.LLM.Temperature),
		MaxTokens:   w.cfg.LLM.MaxTokens,
	}

	resp, err := w.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyCompletion)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank content", ErrEmptyCompletion)
	}
	return text, nil
}

func buildScriptPrompt(titles []string, niche string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a short, engaging voiceover for a YouTube Shorts video about this %s news:\n\n", niche))
	for _, t := range titles {
		sb.WriteString("- " + t + "\n")
	}
	sb.WriteString("\nKeep it under 60 seconds when read aloud, in a casual tone. ")
	sb.WriteString("Return only the words to be spoken: no headings, no side headings, no scene labels.")
	return sb.String()
}

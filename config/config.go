package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Trends   TrendsConfig  `yaml:"trends"`
	LLM      LLMConfig     `yaml:"llm"`
	Footage  FootageConfig `yaml:"footage"`
	Voice    VoiceConfig   `yaml:"voice"`
	Render   RenderConfig  `yaml:"render"`
	Publish  PublishConfig `yaml:"publish"`
	Paths    PathsConfig   `yaml:"paths"`

	// Credentials never come from the yaml file.
	Credentials Credentials `yaml:"-"`
}

type TrendsConfig struct {
	Niche          string `yaml:"niche"`
	Limit          int    `yaml:"limit"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

type FootageConfig struct {
	SearchURL      string `yaml:"search_url"`
	PerPage        int    `yaml:"per_page"`
	Concurrency    int    `yaml:"concurrency"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	DownloadSec    int    `yaml:"download_timeout_sec"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
}

type VoiceConfig struct {
	BaseURL    string `yaml:"base_url"`
	ModelID    string `yaml:"model_id"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type RenderConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

type PublishConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	TitleMaxChars     int    `yaml:"title_max_chars"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	Schedule          bool   `yaml:"schedule"`

	// Publish slots: first matching weekday at ScheduleHour in ScheduleTimezone.
	ScheduleDays     []string `yaml:"schedule_days"`
	ScheduleHour     int      `yaml:"schedule_hour"`
	ScheduleTimezone string   `yaml:"schedule_timezone"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
	Ledger string `yaml:"ledger"`
}

// Default returns the configuration used when no config.yaml is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Trends: TrendsConfig{
			Niche:          "gaming",
			Limit:          2,
			UserAgent:      "TrendBot/0.1",
			TimeoutSec:     15,
			RetryAttempts:  3,
			RetryBackoffMs: 1000,
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "google/gemma-3n-e4b-it:free",
			Temperature: 0.7,
			MaxTokens:   150,
			TimeoutSec:  60,
		},
		Footage: FootageConfig{
			SearchURL:      "https://api.pexels.com/videos/search",
			PerPage:        5,
			Concurrency:    3,
			TimeoutSec:     20,
			DownloadSec:    180,
			RetryAttempts:  3,
			RetryBackoffMs: 2000,
		},
		Voice: VoiceConfig{
			BaseURL:    "https://api.elevenlabs.io/v1",
			ModelID:    "eleven_monolingual_v1",
			TimeoutSec: 120,
		},
		Render: RenderConfig{
			Width:        720,
			Height:       1280,
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "128k",
			Preset:       "fast",
			CRF:          23,
			TimeoutSec:   600,
		},
		Publish: PublishConfig{
			Enabled:          false,
			Visibility:       "private",
			CategoryID:       "20",
			TitleMaxChars:    100,
			DefaultLanguage:  "en",
			ScheduleDays:     []string{"tuesday", "friday"},
			ScheduleHour:     14,
			ScheduleTimezone: "America/New_York",
		},
		Paths: PathsConfig{
			Output: "output",
			Logs:   "logs",
			Ledger: "post1.xlsx",
		},
	}
}

// Load reads config.yaml over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no stage can work with.
func (c *Config) Validate() error {
	var problems []string
	if c.Trends.Limit < 1 {
		problems = append(problems, "trends.limit must be >= 1")
	}
	if c.LLM.MaxTokens < 1 {
		problems = append(problems, "llm.max_tokens must be >= 1")
	}
	if c.Footage.PerPage < 1 {
		problems = append(problems, "footage.per_page must be >= 1")
	}
	if c.Footage.Concurrency < 1 {
		problems = append(problems, "footage.concurrency must be >= 1")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		problems = append(problems, "render.width and render.height must be positive")
	}
	if c.Publish.ScheduleHour < 0 || c.Publish.ScheduleHour > 23 {
		problems = append(problems, "publish.schedule_hour must be 0-23")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Run is the per-run configuration handed to every stage.
type Run struct {
	ID      string
	Dir     string // final outputs and run state
	WorkDir string // temporary artifacts, removed by Close
}

// NewRun creates the run and work directories under paths.output.
func NewRun(cfg *Config) (*Run, error) {
	id := uuid.NewString()[:8]
	dir := filepath.Join(cfg.Paths.Output, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	work, err := os.MkdirTemp(dir, "work-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Run{ID: id, Dir: dir, WorkDir: work}, nil
}

// Close removes the work directory.
func (r *Run) Close() error {
	return os.RemoveAll(r.WorkDir)
}

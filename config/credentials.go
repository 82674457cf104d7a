package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvOpenRouterKey       = "OPENROUTER_API_KEY"
	EnvPexelsKey           = "PEXELS_API_KEY"
	EnvElevenLabsKey       = "ELEVENLABS_API_KEY"
	EnvVoiceID             = "VOICE_ID"
	EnvRedditUserAgent     = "REDDIT_USER_AGENT"
	EnvYouTubeClientID     = "YOUTUBE_CLIENT_ID"
	EnvYouTubeClientSecret = "YOUTUBE_CLIENT_SECRET"
	EnvYouTubeRefreshToken = "YOUTUBE_REFRESH_TOKEN"
)

// Stage names used by Credentials.Require.
const (
	StageTrends  = "trends"
	StageScript  = "script"
	StageFootage = "footage"
	StageVoice   = "voice"
	StagePublish = "publish"
)

type Credentials struct {
	OpenRouterKey       string
	PexelsKey           string
	ElevenLabsKey       string
	VoiceID             string
	RedditUserAgent     string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// LoadCredentials reads .env (local dev only) and then the process environment.
func LoadCredentials() Credentials {
	_ = godotenv.Load()
	return CredentialsFromEnv(os.Getenv)
}

// CredentialsFromEnv builds Credentials from a lookup function.
func CredentialsFromEnv(getenv func(string) string) Credentials {
	return Credentials{
		OpenRouterKey:       getenv(EnvOpenRouterKey),
		PexelsKey:           getenv(EnvPexelsKey),
		ElevenLabsKey:       getenv(EnvElevenLabsKey),
		VoiceID:             getenv(EnvVoiceID),
		RedditUserAgent:     getenv(EnvRedditUserAgent),
		YouTubeClientID:     getenv(EnvYouTubeClientID),
		YouTubeClientSecret: getenv(EnvYouTubeClientSecret),
		YouTubeRefreshToken: getenv(EnvYouTubeRefreshToken),
	}
}

// Require reports the variables a stage needs that are not set.
// The trend feed needs no key.
func (c Credentials) Require(stage string) error {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	switch stage {
	case StageTrends:
	case StageScript:
		check(EnvOpenRouterKey, c.OpenRouterKey)
	case StageFootage:
		check(EnvPexelsKey, c.PexelsKey)
	case StageVoice:
		check(EnvElevenLabsKey, c.ElevenLabsKey)
		check(EnvVoiceID, c.VoiceID)
	case StagePublish:
		check(EnvYouTubeClientID, c.YouTubeClientID)
		check(EnvYouTubeClientSecret, c.YouTubeClientSecret)
		check(EnvYouTubeRefreshToken, c.YouTubeRefreshToken)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s stage: %s not set", stage, strings.Join(missing, ", "))
	}
	return nil
}

package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Uploader publishes the final Short via the YouTube Data API v3
type Uploader struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// Record is the upload log written next to the run state
type Record struct {
	VideoID      string `json:"video_id"`
	VideoURL     string `json:"video_url"`
	Title        string `json:"title"`
	ScheduledUTC string `json:"scheduled_utc,omitempty"`
	UploadedAt   string `json:"uploaded_at"`
	VideoFile    string `json:"video_file"`
}

// New creates a new Uploader
func New(cfg *config.Config) (*Uploader, error) {
	if err := cfg.Credentials.Require(config.StagePublish); err != nil {
		return nil, err
	}
	return &Uploader{cfg: cfg, logger: logging.WithComponent("upload")}, nil
}

// Run uploads videoFile with metadata and returns the video id and watch URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error) {
	u.logger.Info().Msg("authenticating with YouTube")

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(u.oauthClient(ctx)))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.logger.Info().Str("title", metadata.Title).Float64("mb", float64(fi.Size())/1024/1024).Msg("uploading")
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, u.buildVideo(metadata))
	call.Media(f)

	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := "https://www.youtube.com/shorts/" + uploaded.Id
	u.logger.Info().Str("id", uploaded.Id).Str("url", videoURL).Msg("✅ uploaded")
	return uploaded.Id, videoURL, nil
}

func (u *Uploader) buildVideo(md *types.VideoMetadata) *youtube.Video {
	status := &youtube.VideoStatus{
		PrivacyStatus:           md.Visibility,
		SelfDeclaredMadeForKids: u.cfg.Publish.MadeForKids,
		NotifySubscribers:       u.cfg.Publish.NotifySubscribers,
	}
	// YouTube only honours publishAt on private videos.
	if md.ScheduledTimeUTC != "" && md.Visibility == "public" {
		status.PrivacyStatus = "private"
		status.PublishAt = md.ScheduledTimeUTC
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                md.Title,
			Description:          md.Description,
			Tags:                 md.Tags,
			CategoryId:           md.CategoryID,
			DefaultLanguage:      u.cfg.Publish.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Publish.DefaultLanguage,
		},
		Status: status,
	}
}

// oauthClient exchanges the stored refresh token for an authorized client.
func (u *Uploader) oauthClient(ctx context.Context) *http.Client {
	creds := u.cfg.Credentials
	conf := &oauth2.Config{
		ClientID:     creds.YouTubeClientID,
		ClientSecret: creds.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: creds.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token)
}

// LogUpload writes the upload record to dir/upload_<timestamp>.json.
func LogUpload(dir string, rec Record) (string, error) {
	if rec.UploadedAt == "" {
		rec.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

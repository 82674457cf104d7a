package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	research "trend-shorts/01_research"
	script "trend-shorts/02_script"
	audio "trend-shorts/03_audio"
	visuals "trend-shorts/04_visuals"
	render "trend-shorts/07_render"
	ledger "trend-shorts/08_ledger"
	metadata "trend-shorts/08_metadata"
	upload "trend-shorts/09_upload"
	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/media"
	"trend-shorts/types"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	audioFile = "script.mp3"
	finalFile = "final_output.mp4"
)

// runPipeline executes one full run: trends -> script -> scene plan ->
// {footage, voiceover} -> assembly -> metadata -> optional publish.
// The run state is written to the run directory whatever the outcome.
func runPipeline(ctx context.Context, cfg *config.Config, niche string) (err error) {
	run, err := config.NewRun(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := run.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("could not remove work dir")
		}
	}()

	log.Info().Str("run_id", run.ID).Str("dir", run.Dir).Str("niche", niche).Msg("🎬 trend-shorts starting")

	state := &types.PipelineState{
		RunID:     run.ID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Niche:     niche,
	}
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			state.Error = err.Error()
		}
		saveJSON(filepath.Join(run.Dir, "pipeline_state.json"), state)
		if err == nil {
			log.Info().Str("video", state.VideoFile).Msg("✅ pipeline complete")
		}
	}()

	// Construct every client up front so missing credentials fail before any paid call.
	scraper, err := research.New(cfg)
	if err != nil {
		return fmt.Errorf("trends init: %w", err)
	}
	writer, err := script.New(cfg)
	if err != nil {
		return fmt.Errorf("script init: %w", err)
	}
	resolver, err := visuals.NewResolver(cfg)
	if err != nil {
		return fmt.Errorf("footage init: %w", err)
	}
	voice, err := audio.New(cfg)
	if err != nil {
		return fmt.Errorf("voice init: %w", err)
	}
	tools, err := newToolchain(cfg)
	if err != nil {
		return fmt.Errorf("media init: %w", err)
	}
	log.Debug().
		Str("openrouter", logging.SanitizeKey(cfg.Credentials.OpenRouterKey)).
		Str("pexels", logging.SanitizeKey(cfg.Credentials.PexelsKey)).
		Str("elevenlabs", logging.SanitizeKey(cfg.Credentials.ElevenLabsKey)).
		Str("voice_id", cfg.Credentials.VoiceID).
		Msg("stage clients ready")

	logging.Stage(1, "Trends")
	topics, err := scraper.Run(ctx, niche)
	if err != nil {
		return fmt.Errorf("stage 1 trends: %w", err)
	}
	state.Topics = topics

	logging.Stage(2, "Script")
	scriptData, err := writer.Generate(ctx, topics, niche)
	if err != nil {
		return fmt.Errorf("stage 2 script: %w", err)
	}
	state.Script = scriptData

	logging.Stage(3, "Scene Plan")
	plan, issues, err := writer.Plan(ctx, scriptData)
	state.ParseIssues = lo.Map(issues, func(i script.ParseIssue, _ int) string { return i.String() })
	if err != nil {
		return fmt.Errorf("stage 3 scene plan: %w", err)
	}
	state.Plan = plan
	saveJSON(filepath.Join(run.Dir, "script.json"), scriptData)

	if err := ledger.New(cfg.Paths.Ledger).Append(ledgerEntry(time.Now(), topics, scriptData, plan)); err != nil {
		log.Warn().Err(err).Msg("ledger append failed")
	}

	logging.Stage(4, "Footage + Voiceover")
	audioPath := filepath.Join(run.Dir, "audio", audioFile)
	clipsDir := filepath.Join(run.Dir, "clips")
	var results []types.ClipResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := voice.Generate(gctx, scriptData, audioPath); err != nil {
			return fmt.Errorf("voiceover: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		state.Selections = resolver.Resolve(gctx, plan)
		results = visuals.NewFetcher(cfg, tools).Fetch(gctx, state.Selections, plan, clipsDir, run.WorkDir)
		if len(visuals.Clips(results)) == 0 {
			return fmt.Errorf("footage: %w", render.ErrNoClips)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stage 4: %w", err)
	}
	state.AudioFile = audioPath
	state.Clips = visuals.Clips(results)

	logging.Stage(5, "Assemble")
	finalPath := filepath.Join(run.Dir, finalFile)
	res, err := render.New(cfg, tools, run.WorkDir).Assemble(ctx, state.Clips, audioPath, finalPath)
	if err != nil {
		return fmt.Errorf("stage 5 assemble: %w", err)
	}
	state.VideoFile = res.OutputPath

	logging.Stage(6, "Metadata")
	md := metadata.New(cfg).Run(topics, scriptData, plan)
	state.Metadata = md
	saveJSON(filepath.Join(run.Dir, "metadata.json"), md)

	if !cfg.Publish.Enabled {
		log.Info().Msg("publish disabled, skipping upload")
		return nil
	}

	logging.Stage(7, "Publish")
	uploader, err := upload.New(cfg)
	if err != nil {
		return fmt.Errorf("stage 7 publish: %w", err)
	}
	videoID, videoURL, err := uploader.Run(ctx, res.OutputPath, md)
	if err != nil {
		return fmt.Errorf("stage 7 publish: %w", err)
	}
	state.YouTubeID, state.YouTubeURL = videoID, videoURL

	if _, err := upload.LogUpload(cfg.Paths.Logs, upload.Record{
		VideoID:      videoID,
		VideoURL:     videoURL,
		Title:        md.Title,
		ScheduledUTC: md.ScheduledTimeUTC,
		VideoFile:    res.OutputPath,
	}); err != nil {
		log.Warn().Err(err).Msg("could not write upload log")
	}
	return nil
}

// ledgerEntry records every trend the script was written from.
func ledgerEntry(at time.Time, topics []types.Topic, s *types.Script, plan types.ScenePlan) ledger.Entry {
	titles := lo.Map(topics, func(t types.Topic, _ int) string { return t.Title })
	return ledger.Entry{
		Time:     at,
		Trend:    strings.Join(titles, "; "),
		Script:   s.Text,
		Keywords: plan.String(),
	}
}

// newToolchain builds the ffmpeg toolchain from the render config.
func newToolchain(cfg *config.Config) (*media.FFmpeg, error) {
	profile := media.DefaultProfile()
	profile.Width = cfg.Render.Width
	profile.Height = cfg.Render.Height
	profile.VideoCodec = cfg.Render.VideoCodec
	profile.AudioCodec = cfg.Render.AudioCodec
	profile.AudioBitrate = cfg.Render.AudioBitrate
	profile.Preset = cfg.Render.Preset
	profile.CRF = cfg.Render.CRF
	return media.NewFFmpeg(logging.WithComponent("media"), profile, time.Duration(cfg.Render.TimeoutSec)*time.Second)
}

// mergeClips assembles every .mp4 in clipsDir (name order) with the narration.
func mergeClips(ctx context.Context, cfg *config.Config, clipsDir, audioPath, outPath string) (*render.Result, error) {
	paths, err := filepath.Glob(filepath.Join(clipsDir, "*.mp4"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", clipsDir, render.ErrNoClips)
	}
	clips := lo.Map(paths, func(p string, _ int) types.Clip {
		return types.Clip{Keyword: filepath.Base(p), Path: p, State: types.ClipTrimmed}
	})

	tools, err := newToolchain(cfg)
	if err != nil {
		return nil, err
	}
	work, err := os.MkdirTemp("", "merge-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(work)

	res, err := render.New(cfg, tools, work).Assemble(ctx, clips, audioPath, outPath)
	if errors.Is(err, render.ErrUndefinedRepeatCount) {
		return nil, fmt.Errorf("clips in %s have no measurable duration: %w", clipsDir, err)
	}
	return res, err
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not marshal JSON")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not save JSON")
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	research "trend-shorts/01_research"
	script "trend-shorts/02_script"
	audio "trend-shorts/03_audio"
	"trend-shorts/config"
	"trend-shorts/logging"
	"trend-shorts/types"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	niche   string
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("❌ failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "trend-shorts",
	Short:         "Turn trending posts into narrated vertical Shorts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logging.Init(cfg.LogLevel, verbose)
		cfg.Credentials = config.LoadCredentials()
		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&niche, "niche", "", "subreddit to pull trends from (default: trends.niche)")

	mergeCmd.Flags().String("clips", "clips", "directory of trimmed clips")
	mergeCmd.Flags().String("audio", filepath.Join("audio", "script.mp3"), "narration file")
	mergeCmd.Flags().String("out", "final_output.mp4", "output file")
	voiceCmd.Flags().String("out", filepath.Join("audio", "script.mp3"), "output file")
	planCmd.Flags().Bool("raw", false, "parse the argument as a planner reply instead of calling the LLM")

	rootCmd.AddCommand(runCmd, trendsCmd, planCmd, voiceCmd, mergeCmd)
}

func nicheOr(cfg *config.Config) string {
	if niche != "" {
		return niche
	}
	return cfg.Trends.Niche
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		return runPipeline(cmd.Context(), cfg, nicheOr(cfg))
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Print the current hot topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		scraper, err := research.New(cfg)
		if err != nil {
			return err
		}
		topics, err := scraper.Run(cmd.Context(), nicheOr(cfg))
		if err != nil {
			return err
		}
		for _, t := range topics {
			fmt.Fprintf(cmd.OutOrStdout(), "%5d  %s\n", t.Score, t.Title)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [text]",
	Short: "Print the scene plan for a script",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		raw, _ := cmd.Flags().GetBool("raw")

		var plan types.ScenePlan
		var issues []script.ParseIssue
		if raw {
			plan, issues = script.ParseScenePlan(text)
		} else {
			writer, err := script.New(config.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			var perr error
			plan, issues, perr = writer.Plan(cmd.Context(), &types.Script{Text: text})
			if perr != nil {
				return perr
			}
		}

		out := cmd.OutOrStdout()
		for _, s := range plan {
			fmt.Fprintf(out, "%-30s %3ds\n", s.Keyword, s.Seconds)
		}
		fmt.Fprintf(out, "total %ds\n", plan.TotalSeconds())
		for _, i := range issues {
			fmt.Fprintf(out, "dropped %s\n", i)
		}
		return nil
	},
}

var voiceCmd = &cobra.Command{
	Use:   "voice [text]",
	Short: "Synthesize a voiceover for text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		gen, err := audio.New(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		return gen.Generate(cmd.Context(), &types.Script{Text: strings.Join(args, " ")}, out)
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Loop trimmed clips under a narration and mux the final video",
	RunE: func(cmd *cobra.Command, args []string) error {
		clips, _ := cmd.Flags().GetString("clips")
		audioPath, _ := cmd.Flags().GetString("audio")
		out, _ := cmd.Flags().GetString("out")

		res, err := mergeClips(cmd.Context(), config.FromContext(cmd.Context()), clips, audioPath, out)
		if err != nil {
			return err
		}
		log.Info().Str("file", res.OutputPath).Int("repeats", res.RepeatCount).Float64("seconds", res.Seconds).Msg("merged")
		return nil
	},
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/keagan/slopcannon/internal/clips"
	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/ffmpeg"
	"github.com/keagan/slopcannon/internal/pipeline"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	curateMode string
	curateTop  int
	curateOut  string
)

var curateCmd = &cobra.Command{
	Use:   "curate [bundle]",
	Short: "Curate clips from a collaborator signal bundle",
	Long: "Reads a YAML or JSON bundle of transcript, loudness, silence and vision\n" +
		"streams, runs the curation engine and prints the ranked clips. When the\n" +
		"bundle names a media file but carries no audio streams they are extracted\n" +
		"with ffmpeg.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		curation := cfg.Curation

		if curateMode != "" {
			mode, err := signals.ParseMode(curateMode)
			if err != nil {
				return err
			}
			curation.Mode = mode
		}

		in, err := pipeline.LoadInput(args[0])
		if err != nil {
			return err
		}
		in.Media = util.ResolveRelative(args[0], in.Media)

		if err := fillAudioFeatures(cmd, cfg, in); err != nil {
			return err
		}

		pipe, err := pipeline.New(log.Logger, curation)
		if err != nil {
			return err
		}

		result, err := pipe.Run(cmd.Context(), in)
		if err != nil {
			if stage, ok := signals.StageOf(err); ok {
				log.Error().Str("stage", string(stage)).Err(err).Msg("curation failed")
			}
			return err
		}
		for _, w := range result.Warnings {
			log.Warn().Err(w).Msg("curation warning")
		}

		manager := result.Manager()
		top := manager.Top(curateTop)
		fmt.Println(renderTable(
			[]string{"#", "Start", "End", "Length", "Score", "Pattern", "ID"},
			clipRows(top),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))

		if curateOut == "" {
			return nil
		}
		if err := util.EnsureDir(filepath.Dir(curateOut)); err != nil {
			return err
		}
		manifest := &clips.Manifest{Source: in.Media, Mode: result.Mode, Clips: top}
		if err := manifest.Write(curateOut); err != nil {
			return err
		}
		log.Info().Str("path", curateOut).Int("clips", len(top)).Msg("manifest written")
		return nil
	},
}

func init() {
	curateCmd.Flags().StringVar(&curateMode, "mode", "", "curation mode: general or specialized (default from config)")
	curateCmd.Flags().IntVar(&curateTop, "top", 0, "limit output to the N best clips (0 = all)")
	curateCmd.Flags().StringVarP(&curateOut, "out", "o", "", "write a JSON manifest for the renderer")
}

// fillAudioFeatures extracts loudness and silences from the bundle's media
// file when the bundle has neither
func fillAudioFeatures(cmd *cobra.Command, cfg *config.Config, in *pipeline.Input) error {
	if in.Media == "" || len(in.Loudness) > 0 || len(in.Silences) > 0 {
		return nil
	}
	if !util.FileExists(in.Media) {
		log.Warn().Str("media", in.Media).Msg("media file not found, curating without audio features")
		return nil
	}

	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
	if err != nil {
		return err
	}
	features, err := exec.Analyze(cmd.Context(), in.Media, analysisOptions(cfg))
	if err != nil {
		return err
	}

	in.Loudness = features.Loudness
	in.Silences = features.Silences
	if in.Duration <= 0 {
		in.Duration = features.Info.Duration.Seconds()
	}
	if in.FPS <= 0 {
		in.FPS = features.Info.FPS
	}
	return nil
}

func clipRows(top []*clips.Clip) [][]string {
	rows := make([][]string, 0, len(top))
	for _, c := range top {
		pattern := string(c.Pattern)
		if pattern == "" {
			pattern = "window"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Rank),
			util.FormatDuration(c.Start),
			util.FormatDuration(c.End),
			util.FormatDuration(c.Duration),
			fmt.Sprintf("%.3f", c.Score),
			pattern,
			c.ID[:8],
		})
	}
	return rows
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/keagan/slopcannon/internal/config"
	"github.com/keagan/slopcannon/internal/ffmpeg"
	"github.com/keagan/slopcannon/internal/logging"
	"github.com/keagan/slopcannon/internal/overlays"
	"github.com/keagan/slopcannon/internal/scoring"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "slopcannon",
	Short: "slopCannon - signal-based clip curation",
	Long:  "Curates highlight clips from transcript, audio and vision signals and hands them to a renderer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose, jsonLogs)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.AddCommand(curateCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe [media]",
	Short: "Show media metadata and audio features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
		if err != nil {
			return err
		}

		features, err := exec.Analyze(cmd.Context(), args[0], analysisOptions(cfg))
		if err != nil {
			return err
		}

		info := features.Info
		rows := [][]string{
			{"duration", util.FormatDuration(info.Duration)},
			{"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)},
			{"fps", fmt.Sprintf("%.3f", info.FPS)},
			{"video codec", info.VideoCodec},
			{"audio codec", info.AudioCodec},
			{"loudness samples", fmt.Sprintf("%d", len(features.Loudness))},
			{"silences", fmt.Sprintf("%d", len(features.Silences))},
		}
		fmt.Println(renderTable([]string{"Property", "Value"}, rows, nil))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [weights|overlays]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"weights", "overlays"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		switch args[0] {
		case "weights":
			return listWeights(cfg)
		case "overlays":
			listOverlays(cfg)
			return nil
		default:
			return fmt.Errorf("unknown resource %q", args[0])
		}
	},
}

func listWeights(cfg *config.Config) error {
	overrides, err := cfg.Curation.WeightTable()
	if err != nil {
		return err
	}
	weights := scoring.Merge(scoring.DefaultWeights(cfg.Curation.Mode), overrides)

	rows := make([][]string, 0, len(signals.Categories))
	for _, c := range signals.Categories {
		rows = append(rows, []string{string(c), fmt.Sprintf("%.2f", weights[c])})
	}
	fmt.Printf("mode: %s\n", cfg.Curation.Mode)
	fmt.Println(renderTable([]string{"Category", "Weight"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func listOverlays(cfg *config.Config) {
	registry := overlays.NewRegistry()
	for name, path := range cfg.Overlays.Overlays {
		registry.Register(name, path)
	}

	var rows [][]string
	for _, name := range registry.List() {
		path, _ := registry.Get(name)
		marker := ""
		if name == cfg.Overlays.DefaultOverlay {
			marker = "*"
		}
		rows = append(rows, []string{marker, name, path})
	}
	fmt.Println(renderTable([]string{"", "Overlay", "Source"}, rows, nil))
}

func analysisOptions(cfg *config.Config) ffmpeg.AnalysisOptions {
	opts := ffmpeg.DefaultAnalysisOptions()
	if cfg.FFmpeg.RMSWindowMs > 0 {
		opts.WindowMs = cfg.FFmpeg.RMSWindowMs
	}
	if cfg.FFmpeg.SilenceDB != 0 {
		opts.SilenceDB = cfg.FFmpeg.SilenceDB
	}
	if cfg.Curation.Normalize.MinPause > 0 {
		opts.MinSilence = cfg.Curation.Normalize.MinPause
	}
	return opts
}

package config

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix prefixes environment overrides, e.g. SLOPCANNON_CURATION_WINDOW_LENGTH
const EnvPrefix = "SLOPCANNON"

// Config holds all application configuration
type Config struct {
	WorkDir string `yaml:"work_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Overlay presets handed to the renderer
	Overlays OverlayConfig `yaml:"overlays"`

	// Curation engine settings
	Curation CurationConfig `yaml:"curation"`
}

type FFmpegConfig struct {
	BinaryPath  string  `yaml:"binary_path"`
	ProbePath   string  `yaml:"probe_path"`
	Threads     int     `yaml:"threads"`
	RMSWindowMs int     `yaml:"rms_window_ms"`
	SilenceDB   float64 `yaml:"silence_db"`
}

type OverlayConfig struct {
	DefaultOverlay string            `yaml:"default_overlay"`
	Overlays       map[string]string `yaml:"overlays"`
}

// Load reads configuration layered as defaults, config file, then
// SLOPCANNON_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, err
	}

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			RMSWindowMs: 100,
			SilenceDB:   -35.0,
		},
		Overlays: OverlayConfig{
			DefaultOverlay: "none",
			Overlays:       make(map[string]string),
		},
		Curation: DefaultCuration(),
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".slopcannon", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks every curation parameter
func (c *Config) Validate() error {
	return c.Curation.Validate()
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

func configErr(field, reason string) error {
	return &signals.ConfigurationError{Stage: signals.StageConfig, Field: field, Reason: reason}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/slopcannon/internal/signals"
)

func TestDefaultCurationIsValid(t *testing.T) {
	cfg := DefaultCuration()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
}

func TestValidateRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CurationConfig)
		field  string
	}{
		{"zero window", func(c *CurationConfig) { c.Window.Length = 0 }, "window.length"},
		{"negative stride", func(c *CurationConfig) { c.Window.Stride = -1 }, "window.stride"},
		{"unknown mode", func(c *CurationConfig) { c.Mode = "cinematic" }, "mode"},
		{"debounce not shorter than chain", func(c *CurationConfig) {
			c.Debounce.WindowFrames = 120
			c.Debounce.FrameRate = 30
			c.Narrative.ChainWindow = 4
		}, "debounce.window_frames"},
		{"max below min", func(c *CurationConfig) { c.Refine.MaxClipLength = 5 }, "refine.max_clip_length"},
		{"negative weight", func(c *CurationConfig) { c.Weights = map[string]float64{"keyword": -1} }, "weights.keyword"},
		{"unknown weight", func(c *CurationConfig) { c.Weights = map[string]float64{"laughter": 1} }, "weights.laughter"},
		{"threshold above one", func(c *CurationConfig) { c.Debounce.MatchThreshold = 1.2 }, "debounce.match_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCuration()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected configuration error")
			}
			var cfgErr *signals.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
			if cfgErr.Stage != signals.StageConfig {
				t.Errorf("expected config stage, got %s", cfgErr.Stage)
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("curation:\n  mode: specialized\n  window:\n    length: 45\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Curation.Mode != signals.ModeSpecialized {
		t.Errorf("expected specialized mode, got %s", cfg.Curation.Mode)
	}
	if cfg.Curation.Window.Length != 45 {
		t.Errorf("expected window length 45, got %v", cfg.Curation.Window.Length)
	}
	if cfg.Curation.Window.Stride != 1 {
		t.Errorf("expected default stride 1, got %v", cfg.Curation.Window.Stride)
	}
	if len(cfg.Curation.Normalize.Keywords) == 0 {
		t.Error("expected default keywords to survive the merge")
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Setenv("SLOPCANNON_CURATION_WINDOW_TARGET_CLIPS", "9")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Curation.Window.TargetClips != 9 {
		t.Errorf("expected env override 9, got %d", cfg.Curation.Window.TargetClips)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Curation.Narrative.GrowthExponent = 2

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Curation.Narrative.GrowthExponent != 2 {
		t.Errorf("expected growth exponent 2, got %v", loaded.Curation.Narrative.GrowthExponent)
	}
}

package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/keagan/slopcannon/internal/signals"
)

// CurationConfig holds every tunable of the curation engine
type CurationConfig struct {
	Mode       signals.Mode `yaml:"mode"`
	MinDensity float64      `yaml:"min_density"`

	Window    WindowConfig    `yaml:"window"`
	Debounce  DebounceConfig  `yaml:"debounce"`
	Narrative NarrativeConfig `yaml:"narrative"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Refine    RefineConfig    `yaml:"refine"`

	// Weights maps category name to strength multiplier. Empty means the
	// mode's default table.
	Weights map[string]float64 `yaml:"weights"`
}

// WindowConfig drives sliding-window density scoring
type WindowConfig struct {
	Length            float64 `yaml:"length"`
	Stride            float64 `yaml:"stride"`
	TargetClips       int     `yaml:"target_clips"`
	CooccurrenceBonus float64 `yaml:"cooccurrence_bonus"`
}

// DebounceConfig drives collapsing of per-frame detections
type DebounceConfig struct {
	WindowFrames      int     `yaml:"window_frames"`
	FrameRate         float64 `yaml:"frame_rate"`
	MatchThreshold    float64 `yaml:"match_threshold"`
	HeadshotTolerance float64 `yaml:"headshot_tolerance"`
	UnconfirmedScale  float64 `yaml:"unconfirmed_scale"`
}

// WindowSeconds converts the debounce window to seconds
func (d DebounceConfig) WindowSeconds() float64 {
	if d.FrameRate <= 0 {
		return 0
	}
	return float64(d.WindowFrames) / d.FrameRate
}

// NarrativeConfig drives narrative-chain detection
type NarrativeConfig struct {
	ChainWindow         float64 `yaml:"chain_window"`
	ReactionWindow      float64 `yaml:"reaction_window"`
	GrowthExponent      float64 `yaml:"growth_exponent"`
	BaseKillScore       float64 `yaml:"base_kill_score"`
	HeadshotBonus       float64 `yaml:"headshot_bonus"`
	MinReactionStrength float64 `yaml:"min_reaction_strength"`
	PrePadding          float64 `yaml:"pre_padding"`
	PostPadding         float64 `yaml:"post_padding"`
}

// NormalizeConfig drives conversion of collaborator output into events
type NormalizeConfig struct {
	Keywords      []string `yaml:"keywords"`
	QuestionWords []string `yaml:"question_words"`
	SpikeStddevs  float64  `yaml:"spike_stddevs"`
	SpikeWindow   float64  `yaml:"spike_window"`
	MinPause      float64  `yaml:"min_pause"`
	SilenceLevel  float64  `yaml:"silence_level"`
	UtteranceGap  float64  `yaml:"utterance_gap"`
}

// RefineConfig drives boundary snapping
type RefineConfig struct {
	MaxExtension    float64 `yaml:"max_extension"`
	FallbackPadding float64 `yaml:"fallback_padding"`
	MinClipLength   float64 `yaml:"min_clip_length"`
	MaxClipLength   float64 `yaml:"max_clip_length"`
}

// DefaultCuration returns engine defaults
func DefaultCuration() CurationConfig {
	return CurationConfig{
		Mode:       signals.ModeGeneral,
		MinDensity: 0.5,
		Window: WindowConfig{
			Length:            30,
			Stride:            1,
			TargetClips:       5,
			CooccurrenceBonus: 1.5,
		},
		Debounce: DebounceConfig{
			WindowFrames:      15,
			FrameRate:         30,
			MatchThreshold:    0.85,
			HeadshotTolerance: 0.5,
			UnconfirmedScale:  0.5,
		},
		Narrative: NarrativeConfig{
			ChainWindow:         4,
			ReactionWindow:      2,
			GrowthExponent:      1.5,
			BaseKillScore:       10,
			HeadshotBonus:       2.5,
			MinReactionStrength: 0.3,
			PrePadding:          2,
			PostPadding:         2,
		},
		Normalize: NormalizeConfig{
			Keywords: []string{
				"problem", "amazing", "incredible", "crazy", "wow", "best", "worst",
				"omg", "unbelievable", "terrible", "horrible", "love", "hate",
				"genius", "insane", "really",
			},
			QuestionWords: []string{"what", "who", "how", "why", "where", "when", "is", "are", "do", "does"},
			SpikeStddevs:  2.0,
			SpikeWindow:   5,
			MinPause:      1.0,
			SilenceLevel:  0.02,
			UtteranceGap:  0.8,
		},
		Refine: RefineConfig{
			MaxExtension:    5,
			FallbackPadding: 1,
			MinClipLength:   10,
			MaxClipLength:   90,
		},
		Weights: map[string]float64{},
	}
}

// WeightTable resolves the configured weights, falling back to the mode's
// defaults for an empty table.
func (c CurationConfig) WeightTable() (map[signals.Category]float64, error) {
	out := make(map[signals.Category]float64, len(c.Weights))
	names := make([]string, 0, len(c.Weights))
	for name := range c.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cat, err := signals.ParseCategory(name)
		if err != nil {
			return nil, configErr("weights."+name, err.Error())
		}
		out[cat] = c.Weights[name]
	}
	return out, nil
}

// Validate reports the first invalid parameter as a ConfigurationError
func (c CurationConfig) Validate() error {
	if _, err := signals.ParseMode(string(c.Mode)); err != nil {
		return configErr("mode", err.Error())
	}
	if c.MinDensity < 0 {
		return configErr("min_density", "must not be negative")
	}

	checks := []struct {
		field string
		value float64
	}{
		{"window.length", c.Window.Length},
		{"window.stride", c.Window.Stride},
		{"debounce.frame_rate", c.Debounce.FrameRate},
		{"narrative.chain_window", c.Narrative.ChainWindow},
		{"narrative.reaction_window", c.Narrative.ReactionWindow},
		{"narrative.growth_exponent", c.Narrative.GrowthExponent},
		{"normalize.spike_stddevs", c.Normalize.SpikeStddevs},
		{"normalize.spike_window", c.Normalize.SpikeWindow},
		{"normalize.utterance_gap", c.Normalize.UtteranceGap},
		{"refine.min_clip_length", c.Refine.MinClipLength},
		{"refine.max_clip_length", c.Refine.MaxClipLength},
	}
	for _, ch := range checks {
		if math.IsNaN(ch.value) || ch.value <= 0 {
			return configErr(ch.field, fmt.Sprintf("must be positive, got %v", ch.value))
		}
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"window.cooccurrence_bonus", c.Window.CooccurrenceBonus},
		{"debounce.headshot_tolerance", c.Debounce.HeadshotTolerance},
		{"debounce.unconfirmed_scale", c.Debounce.UnconfirmedScale},
		{"narrative.base_kill_score", c.Narrative.BaseKillScore},
		{"narrative.headshot_bonus", c.Narrative.HeadshotBonus},
		{"narrative.min_reaction_strength", c.Narrative.MinReactionStrength},
		{"narrative.pre_padding", c.Narrative.PrePadding},
		{"narrative.post_padding", c.Narrative.PostPadding},
		{"normalize.min_pause", c.Normalize.MinPause},
		{"normalize.silence_level", c.Normalize.SilenceLevel},
		{"refine.max_extension", c.Refine.MaxExtension},
		{"refine.fallback_padding", c.Refine.FallbackPadding},
	}
	for _, ch := range nonNegative {
		if math.IsNaN(ch.value) || ch.value < 0 {
			return configErr(ch.field, fmt.Sprintf("must not be negative, got %v", ch.value))
		}
	}

	if c.Window.TargetClips < 0 {
		return configErr("window.target_clips", "must not be negative")
	}
	if c.Debounce.WindowFrames <= 0 {
		return configErr("debounce.window_frames", "must be positive")
	}
	if c.Debounce.MatchThreshold <= 0 || c.Debounce.MatchThreshold > 1 {
		return configErr("debounce.match_threshold", "must be in (0, 1]")
	}
	if c.Debounce.UnconfirmedScale > 1 {
		return configErr("debounce.unconfirmed_scale", "must not exceed 1")
	}
	if c.Refine.MaxClipLength < c.Refine.MinClipLength {
		return configErr("refine.max_clip_length", "must not be shorter than min_clip_length")
	}
	if c.Debounce.WindowSeconds() >= c.Narrative.ChainWindow {
		return configErr("debounce.window_frames", fmt.Sprintf(
			"debounce window %.3fs must be shorter than chain window %.3fs",
			c.Debounce.WindowSeconds(), c.Narrative.ChainWindow))
	}

	weights, err := c.WeightTable()
	if err != nil {
		return err
	}
	for _, cat := range signals.Categories {
		if w, ok := weights[cat]; ok && (math.IsNaN(w) || w < 0) {
			return configErr("weights."+string(cat), "must not be negative")
		}
	}

	return nil
}

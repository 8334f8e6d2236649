package pipeline

import (
	"fmt"
	"os"

	"github.com/keagan/slopcannon/internal/clips"
	"github.com/keagan/slopcannon/internal/normalize"
	"github.com/keagan/slopcannon/internal/signals"
	"github.com/keagan/slopcannon/internal/transcript"
	"gopkg.in/yaml.v3"
)

// Input holds every collaborator stream for one video. All streams are in
// source seconds and sorted by time.
type Input struct {
	Media    string  `yaml:"media,omitempty" json:"media,omitempty"`
	Duration float64 `yaml:"duration,omitempty" json:"duration,omitempty"`
	// FPS overrides the configured debounce frame rate when set
	FPS float64 `yaml:"fps,omitempty" json:"fps,omitempty"`

	Words      []transcript.Word          `yaml:"words,omitempty" json:"words,omitempty"`
	Segments   []transcript.Segment       `yaml:"segments,omitempty" json:"segments,omitempty"`
	Loudness   []normalize.LoudnessSample `yaml:"loudness,omitempty" json:"loudness,omitempty"`
	Silences   []normalize.Silence        `yaml:"silences,omitempty" json:"silences,omitempty"`
	Detections []signals.RawDetection     `yaml:"detections,omitempty" json:"detections,omitempty"`
	// Vision holds already debounced kill and headshot events
	Vision []signals.SignalEvent `yaml:"vision,omitempty" json:"vision,omitempty"`
}

// Result is the outcome of one curation run
type Result struct {
	Mode       signals.Mode              `json:"mode"`
	Duration   float64                   `json:"duration"`
	Events     []signals.SignalEvent     `json:"events"`
	Candidates []signals.ScoredCandidate `json:"candidates,omitempty"`
	Chains     []signals.NarrativeChain  `json:"chains,omitempty"`
	Clips      []*clips.Clip             `json:"clips"`
	// Warnings are non-fatal; the result is still valid
	Warnings []error `json:"-"`
}

// Manager returns the clips in rank order behind a clip manager
func (r *Result) Manager() *clips.Manager {
	m := clips.NewManager()
	for _, c := range r.Clips {
		m.Add(c)
	}
	return m
}

// LoadInput reads a collaborator bundle. JSON is valid YAML, so both work.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input bundle: %w", err)
	}

	var in Input
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse input bundle: %w", err)
	}
	return &in, nil
}

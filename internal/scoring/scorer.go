package scoring

import (
	"fmt"
	"math"

	"github.com/keagan/slopcannon/internal/signals"
)

// WeightTable maps a category to its strength multiplier
type WeightTable map[signals.Category]float64

// DefaultGeneralWeights ranks exclamation > volume spike > question >
// keyword > pause.
func DefaultGeneralWeights() WeightTable {
	return WeightTable{
		signals.CategoryExclamation: 0.8,
		signals.CategoryVolumeSpike: 0.6,
		signals.CategoryQuestion:    0.5,
		signals.CategoryKeyword:     0.4,
		signals.CategoryPause:       0.2,
	}
}

// DefaultSpecializedWeights ranks headshot > kill > reaction
func DefaultSpecializedWeights() WeightTable {
	return WeightTable{
		signals.CategoryVisionHeadshot: 1.0,
		signals.CategoryVisionKill:     0.8,
		signals.CategoryReaction:       0.6,
	}
}

// DefaultWeights returns the table for a mode
func DefaultWeights(mode signals.Mode) WeightTable {
	if mode == signals.ModeSpecialized {
		return DefaultSpecializedWeights()
	}
	return DefaultGeneralWeights()
}

// Scorer assigns each event a weighted strength by category
type Scorer struct {
	weights WeightTable
}

// NewScorer creates a scorer over a copy of the weight table
func NewScorer(weights WeightTable) (*Scorer, error) {
	table := make(WeightTable, len(weights))
	for cat, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return nil, &signals.ConfigurationError{
				Stage:  signals.StageScorer,
				Field:  "weights." + string(cat),
				Reason: fmt.Sprintf("must not be negative, got %v", w),
			}
		}
		table[cat] = w
	}
	return &Scorer{weights: table}, nil
}

// Weight returns the multiplier for a category. Unknown categories weigh 0.
func (s *Scorer) Weight(c signals.Category) float64 {
	return s.weights[c]
}

// Strength returns the weighted strength of an event, clamped to [0, 1]
func (s *Scorer) Strength(e signals.SignalEvent) float64 {
	return signals.Clamp01(e.Strength * s.Weight(e.Category))
}

// Apply returns a new slice of events carrying weighted strengths. Events
// whose category has no weight are dropped.
func (s *Scorer) Apply(events []signals.SignalEvent) []signals.SignalEvent {
	out := make([]signals.SignalEvent, 0, len(events))
	for _, e := range events {
		if s.Weight(e.Category) == 0 {
			continue
		}
		out = append(out, e.WithStrength(s.Strength(e)))
	}
	return out
}

// Merge overlays overrides on a base table
func Merge(base, overrides WeightTable) WeightTable {
	out := make(WeightTable, len(base)+len(overrides))
	for c, w := range base {
		out[c] = w
	}
	for c, w := range overrides {
		out[c] = w
	}
	return out
}
